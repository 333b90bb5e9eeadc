package events

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// DecodeFunc turns the body of an event frame into an Event.
type DecodeFunc func(name Name, body []byte) (Event, error)

var decoders = map[Name]DecodeFunc{
	PlayerMessage:    decodeInto(func(Name) *Message { return &Message{} }),
	BlockBroken:      decodeInto(func(n Name) *BlockEvent { return &BlockEvent{Name: n} }),
	BlockPlaced:      decodeInto(func(n Name) *BlockEvent { return &BlockEvent{Name: n} }),
	ItemAcquired:     decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemCrafted:      decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemDestroyed:    decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemDropped:      decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemEnchanted:    decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemEquipped:     decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemInteracted:   decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemNamed:        decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemSmelted:      decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	ItemUsed:         decodeInto(func(n Name) *ItemEvent { return &ItemEvent{Name: n} }),
	PlayerTravelled:  decodeInto(func(n Name) *Travel { return &Travel{Name: n} }),
	PlayerTeleported: decodeInto(func(n Name) *Travel { return &Travel{Name: n} }),
}

func decodeInto[T Event](newEvent func(Name) T) DecodeFunc {
	return func(name Name, body []byte) (Event, error) {
		ev := newEvent(name)
		if err := json.Unmarshal(body, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return ev, nil
	}
}

// Decode decodes the body of an event frame received under name.
//
// Names without a dedicated type, including names outside the supported set, decode
// to *Generic. An error is returned when body is not valid JSON or does not match the
// shape of the event's type.
func Decode(name Name, body []byte) (Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode %s: body is not valid JSON", name)
	}
	if dec, ok := decoders[name]; ok {
		return dec(name, body)
	}
	return &Generic{Name: name, Body: gjson.ParseBytes(body)}, nil
}
