package bedrocknet

import (
	"context"

	"github.com/luciancaetano/bedrocknet/events"
)

// Broker defines the interface of the bridge between a Bedrock game client and local callers.
//
// The game client connects to the broker with the in-game `/connect ws://host:port` command.
// Once connected, a single WebSocket connection carries two logical channels: commands issued
// by the caller (answered by the game client) and events pushed by the game client.
//
// Example usage:
//
//	import "github.com/luciancaetano/bedrocknet/ws"
//
//	cfg, err := ws.NewConfig("localhost:8000",
//	    ws.OnConnect(func(ctx context.Context, lc bedrocknet.Lifecycle) {
//	        log.Printf("game client connected from %s", lc.RemoteAddr)
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	broker := ws.New(cfg)
//
//	broker.Register(ctx, "player_message", func(ctx context.Context, ev events.Event) {
//	    msg := ev.(*events.Message)
//	    log.Printf("<%s> %s", msg.Sender, msg.Message)
//	})
//
//	broker.Start(ctx)
type Broker interface {
	// Start binds the listening socket and begins accepting the game client.
	//
	// The ready notification is emitted once the socket is bound. Returns an error if the
	// broker is already running, was stopped, or the address cannot be bound.
	Start(ctx context.Context) error

	// Stop closes the active connection, stops accepting new ones and waits for the read loop
	// and in-flight event handlers to finish, bounded by ctx. Commands still waiting for a
	// response fail with ErrCancelled.
	//
	// Calling Stop more than once is a no-op.
	Stop(ctx context.Context) error

	// Addr returns the bound listening address, or the configured address before Start.
	Addr() string

	// State returns the current connection state.
	State() State

	// Connection returns the active connection, if any.
	Connection() (Connection, bool)

	// IssueCommand sends a command line (without the leading slash) to the game client and
	// waits for its result.
	//
	// Returns ErrNotConnected immediately when no game client is connected. The wait ends
	// when the response arrives, ctx is done (ErrCancelled), the configured command timeout
	// elapses (ErrTimeout) or the broker stops (ErrCancelled).
	//
	// Example:
	//
	//	res, err := broker.IssueCommand(ctx, "say hello")
	//	if err != nil {
	//	    return err
	//	}
	//	if !res.OK() {
	//	    log.Printf("command failed: %s", res.Message)
	//	}
	IssueCommand(ctx context.Context, commandLine string) (*CommandResult, error)

	// Register installs the handler for an event name.
	//
	// The name may be given in handler casing ("player_message") or wire casing
	// ("PlayerMessage"). Unknown names fail with ErrUnknownEvent before anything is sent.
	// When a game client is connected, a subscribe frame is sent right away; otherwise the
	// subscription is sent when the next connection becomes active.
	//
	// Handlers run in their own goroutine and never block the receive loop. Registering a
	// name twice replaces the handler.
	Register(ctx context.Context, name string, handler EventHandler) error

	// Unregister removes the handler for an event name and sends an unsubscribe frame when a
	// game client is connected. No acknowledgement is awaited.
	Unregister(ctx context.Context, name string) error

	// Subscribe sends a subscribe frame for an event name without installing a handler.
	//
	// Returns ErrUnknownEvent for names outside the supported set and ErrNotConnected when
	// no game client is connected.
	Subscribe(ctx context.Context, name string) error
}

// Connection represents the connected game client.
//
// At most one connection is active at a time. Its context is cancelled when the
// connection closes.
type Connection interface {
	// ID returns a unique identifier generated when the connection was accepted.
	ID() string

	// RemoteAddr returns the game client's network address, for example "127.0.0.1:54321".
	RemoteAddr() string

	// Context returns the connection's lifecycle context.
	Context() context.Context

	// Send queues a raw, already encoded frame for delivery.
	//
	// Returns an error if the connection is closed or ctx is cancelled.
	Send(ctx context.Context, frame []byte) error

	// Close closes the connection with a normal closure code.
	Close(ctx context.Context) error

	// CloseWithCode closes the connection with a specific WebSocket close code and reason.
	CloseWithCode(ctx context.Context, code int, reason string) error

	// IsAlive returns true if the connection is still open.
	IsAlive() bool
}

// EventHandler handles a decoded game event.
//
// The context is cancelled when the broker stops.
type EventHandler func(ctx context.Context, event events.Event)

// Lifecycle describes a connection state transition delivered to lifecycle listeners.
type Lifecycle struct {
	// Host and Port of the listening socket.
	Host string
	Port int

	// ConnectionID and RemoteAddr are empty for the ready notification.
	ConnectionID string
	RemoteAddr   string

	// Voluntary is set on disconnect when the game client closed the connection itself.
	Voluntary bool
}

// LifecycleFn is called synchronously for ready, connect and disconnect notifications.
// Avoid blocking in it: the connect listener runs before the receive loop starts.
type LifecycleFn = func(ctx context.Context, lc Lifecycle)
