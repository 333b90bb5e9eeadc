package protocol

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/luciancaetano/bedrocknet"
)

const (
	// Version is the protocol version written in every outbound header and command body.
	Version = 1

	// MaxFrameSize is the largest frame accepted in either direction.
	MaxFrameSize = 10 * 1024 * 1024 // 10MB

	messageTypeCommandRequest = "commandRequest"
	originPlayer              = "player"
	targetOverworld           = "default"
)

// Purpose is the header field selecting the logical channel of a frame.
type Purpose string

const (
	PurposeCommandRequest  Purpose = "commandRequest"
	PurposeCommandResponse Purpose = "commandResponse"
	PurposeSubscribe       Purpose = "subscribe"
	PurposeUnsubscribe     Purpose = "unsubscribe"
	PurposeEvent           Purpose = "event"
	PurposeError           Purpose = "error"
)

// Header is the envelope header shared by all frames.
type Header struct {
	Version        int     `json:"version"`
	RequestID      string  `json:"requestId"`
	MessageType    string  `json:"messageType"`
	MessagePurpose Purpose `json:"messagePurpose"`
	EventName      string  `json:"eventName,omitempty"`
}

// Origin describes who a command is executed as.
type Origin struct {
	Type string `json:"type"`
}

// CommandBody is the body of a command request.
type CommandBody struct {
	Version     int    `json:"version"`
	Origin      Origin `json:"origin"`
	CommandLine string `json:"commandLine"`
	Overworld   string `json:"overworld"`
}

// SubscriptionBody is the body of a subscribe or unsubscribe request.
type SubscriptionBody struct {
	EventName string `json:"eventName"`
}

type envelope[B any] struct {
	Header Header `json:"header"`
	Body   B      `json:"body"`
}

// Frame is a decoded inbound frame. Body holds the raw JSON of the body and references the
// decoded data.
type Frame struct {
	Header Header
	Body   []byte
}

func requestHeader(requestID string, purpose Purpose) Header {
	return Header{
		Version:        Version,
		RequestID:      requestID,
		MessageType:    messageTypeCommandRequest,
		MessagePurpose: purpose,
	}
}

func encode[B any](env envelope[B]) ([]byte, error) {
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bedrocknet.ErrFailedToEncode, err)
	}
	if len(out) > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame size %d exceeds maximum %d bytes", bedrocknet.ErrFailedToEncode, len(out), MaxFrameSize)
	}
	return out, nil
}

// EncodeCommand encodes a command request for commandLine, executed as a player in the overworld.
func EncodeCommand(requestID, commandLine string) ([]byte, error) {
	return encode(envelope[CommandBody]{
		Header: requestHeader(requestID, PurposeCommandRequest),
		Body: CommandBody{
			Version:     Version,
			Origin:      Origin{Type: originPlayer},
			CommandLine: commandLine,
			Overworld:   targetOverworld,
		},
	})
}

// EncodeSubscription encodes a subscribe or unsubscribe request for a wire event name.
func EncodeSubscription(requestID string, purpose Purpose, eventName string) ([]byte, error) {
	if purpose != PurposeSubscribe && purpose != PurposeUnsubscribe {
		return nil, fmt.Errorf("%w: purpose %q is not a subscription purpose", bedrocknet.ErrFailedToEncode, purpose)
	}
	return encode(envelope[SubscriptionBody]{
		Header: requestHeader(requestID, purpose),
		Body:   SubscriptionBody{EventName: eventName},
	})
}

// Decode decodes the outer envelope of an inbound frame.
//
// The header must carry a messagePurpose. Command responses and errors must also carry a
// requestId, and events an eventName, read from the header first and the body second.
// All errors wrap bedrocknet.ErrProtocolDecode.
func Decode(data []byte) (*Frame, error) {
	if len(data) > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame size %d exceeds maximum %d bytes", bedrocknet.ErrProtocolDecode, len(data), MaxFrameSize)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", bedrocknet.ErrProtocolDecode)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: frame is not an object", bedrocknet.ErrProtocolDecode)
	}

	header := root.Get("header")
	if !header.IsObject() {
		return nil, fmt.Errorf("%w: missing header", bedrocknet.ErrProtocolDecode)
	}

	purpose := header.Get("messagePurpose")
	if purpose.Type != gjson.String || purpose.Str == "" {
		return nil, fmt.Errorf("%w: missing header.messagePurpose", bedrocknet.ErrProtocolDecode)
	}

	f := &Frame{
		Header: Header{
			Version:        int(header.Get("version").Int()),
			RequestID:      header.Get("requestId").String(),
			MessageType:    header.Get("messageType").String(),
			MessagePurpose: Purpose(purpose.Str),
			EventName:      header.Get("eventName").String(),
		},
	}

	body := root.Get("body")
	if body.Exists() {
		f.Body = []byte(body.Raw)
	}

	switch f.Header.MessagePurpose {
	case PurposeCommandResponse, PurposeError:
		if f.Header.RequestID == "" {
			return nil, fmt.Errorf("%w: %s without header.requestId", bedrocknet.ErrProtocolDecode, f.Header.MessagePurpose)
		}
	case PurposeEvent:
		if f.Header.EventName == "" {
			f.Header.EventName = body.Get("eventName").String()
		}
		if f.Header.EventName == "" {
			return nil, fmt.Errorf("%w: event without eventName", bedrocknet.ErrProtocolDecode)
		}
		if !body.IsObject() {
			return nil, fmt.Errorf("%w: event %s without body", bedrocknet.ErrProtocolDecode, f.Header.EventName)
		}
	}

	return f, nil
}

// DecodeCommandResponse decodes the body of a command response into a CommandResult.
//
// The message is read from statusMessage, falling back to message.
func DecodeCommandResponse(body []byte) (*bedrocknet.CommandResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: command response body is not valid JSON", bedrocknet.ErrProtocolDecode)
	}

	parsed := gjson.ParseBytes(body)
	status := parsed.Get("statusCode")
	if status.Type != gjson.Number {
		return nil, fmt.Errorf("%w: command response without statusCode", bedrocknet.ErrProtocolDecode)
	}

	msg := parsed.Get("statusMessage")
	if !msg.Exists() {
		msg = parsed.Get("message")
	}

	return &bedrocknet.CommandResult{
		Message:    msg.String(),
		StatusCode: int(status.Int()),
	}, nil
}
