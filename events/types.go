package events

import "github.com/tidwall/gjson"

// Event is a decoded game event. The set of implementations is closed to this package.
type Event interface {
	// EventName returns the wire name the event was received under.
	EventName() Name
	isEvent()
}

// Position is a location in the world.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Player describes the player an event is about.
type Player struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Color     string   `json:"color"`
	Dimension int      `json:"dimension"`
	Variant   int      `json:"variant"`
	YRot      float64  `json:"yRot"`
	Position  Position `json:"position"`
}

// Block identifies a block type.
type Block struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Aux       int    `json:"aux"`
}

// Enchantment applied to an item.
type Enchantment struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Level int    `json:"level"`
}

// Item describes an item stack.
type Item struct {
	ID            string        `json:"id"`
	Namespace     string        `json:"namespace"`
	Aux           int           `json:"aux"`
	StackSize     int           `json:"stackSize"`
	MaxStackSize  int           `json:"maxStackSize"`
	FreeStackSize int           `json:"freeStackSize"`
	Enchantments  []Enchantment `json:"enchantments"`
}

// Message is a PlayerMessage event: a chat, say, tell or title message.
type Message struct {
	Message  string `json:"message"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Type     string `json:"type"`
}

func (*Message) EventName() Name { return PlayerMessage }
func (*Message) isEvent() {}

// BlockEvent is a BlockBroken or BlockPlaced event.
type BlockEvent struct {
	Name              Name   `json:"-"`
	Block             Block  `json:"block"`
	Player            Player `json:"player"`
	Tool              *Item  `json:"tool,omitempty"`
	Count             int    `json:"count"`
	DestructionMethod int    `json:"destructionMethod"`
	PlacementMethod   int    `json:"placementMethod"`
}

func (e *BlockEvent) EventName() Name { return e.Name }
func (*BlockEvent) isEvent() {}

// ItemEvent is one of the Item* events.
type ItemEvent struct {
	Name              Name   `json:"-"`
	Item              Item   `json:"item"`
	Player            Player `json:"player"`
	Count             int    `json:"count"`
	AcquisitionMethod int    `json:"acquisitionMethodId"`
	UseMethod         int    `json:"useMethod"`
}

func (e *ItemEvent) EventName() Name { return e.Name }
func (*ItemEvent) isEvent() {}

// Travel is a PlayerTravelled or PlayerTeleported event.
type Travel struct {
	Name            Name    `json:"-"`
	Player          Player  `json:"player"`
	IsUnderwater    bool    `json:"isUnderwater"`
	MetersTravelled float64 `json:"metersTravelled"`
	NewBiome        int     `json:"newBiome"`
	TravelMethod    int     `json:"travelMethod"`
	Cause           int     `json:"cause"`
}

func (e *Travel) EventName() Name { return e.Name }
func (*Travel) isEvent() {}

// Generic carries the body of an event without a dedicated type.
type Generic struct {
	Name Name
	Body gjson.Result
}

func (e *Generic) EventName() Name { return e.Name }
func (*Generic) isEvent() {}

// MarshalJSON returns the raw body.
func (e *Generic) MarshalJSON() ([]byte, error) {
	if e.Body.Raw == "" {
		return []byte("null"), nil
	}
	return []byte(e.Body.Raw), nil
}
