package websocket

import (
	"log/slog"

	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/internal/protocol"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
)

// route delivers an inbound frame to the correlator or the dispatcher.
// Malformed frames are logged and dropped; the connection stays open.
func (s *Server) route(client *Client, data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn("dropping frame",
			slog.String("conn_id", client.ID()),
			slogx.Error(err),
			slogx.ByteString("frame", truncate(data, 256)),
		)
		return
	}

	switch frame.Header.MessagePurpose {
	case protocol.PurposeCommandResponse, protocol.PurposeError:
		if !s.correlator.Resolve(frame.Header.RequestID, frame.Body) {
			s.logger.Debug("no pending command for response",
				slog.String("conn_id", client.ID()),
				slog.String("request_id", frame.Header.RequestID),
			)
		}

	case protocol.PurposeEvent:
		name := events.Name(frame.Header.EventName)
		ev, err := s.decode(name, frame.Body)
		if err != nil {
			s.logger.Warn("dropping event",
				slog.String("conn_id", client.ID()),
				slog.String("event", string(name)),
				slogx.Error(err),
			)
			return
		}
		s.dispatcher.Dispatch(name, ev)

	default:
		s.logger.Warn("dropping frame with unsupported purpose",
			slog.String("conn_id", client.ID()),
			slog.String("purpose", string(frame.Header.MessagePurpose)),
		)
	}
}

func truncate(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[:n]
}
