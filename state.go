package bedrocknet

// State is the broker's connection state.
//
//	Idle -> Listening -> Connected -> Disconnected -> Listening ...
//
// Closed is terminal and reached from any state by Stop.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateConnected
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
