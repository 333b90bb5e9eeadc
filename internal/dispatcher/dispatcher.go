package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/internal/protocol"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
)

// Link is the connection subscription frames are written to.
type Link interface {
	ID() string
	Send(ctx context.Context, frame []byte) error
}

// ActiveFunc returns the active connection, if any.
type ActiveFunc func() (Link, bool)

// Dispatcher owns the event handler registry.
//
// It keeps the game client's subscriptions in line with the registry: registering sends a
// subscribe frame, unregistering an unsubscribe frame, and every new connection gets a
// subscribe frame per registered handler. Inbound events are handed to their handler in a
// goroutine of its own.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers *orderedmap.OrderedMap[events.Name, bedrocknet.EventHandler]
	// subscribedOn records the connection each name was last subscribed on, so a
	// connection never receives the same subscribe frame twice.
	subscribedOn map[events.Name]string

	active ActiveFunc
	logger *slog.Logger

	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Dispatcher sending subscription frames to the connection returned by active.
func New(active ActiveFunc, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handlers:     orderedmap.New[events.Name, bedrocknet.EventHandler](),
		subscribedOn: make(map[events.Name]string),
		active:       active,
		logger:       logger.With(slogx.LoggerName("dispatcher")),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func resolveName(name string) (events.Name, error) {
	wire, ok := events.WireName(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", bedrocknet.ErrUnknownEvent, name)
	}
	return wire, nil
}

// Register stores handler for name and subscribes on the active connection, if any.
//
// Unknown names fail with ErrUnknownEvent and leave the registry untouched. A send failure
// is logged, not returned: the handler stays registered and is subscribed again on the
// next connection.
func (d *Dispatcher) Register(ctx context.Context, name string, handler bedrocknet.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler for %q is nil", name)
	}
	wire, err := resolveName(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers.Set(wire, handler)

	link, ok := d.active()
	if !ok || d.subscribedOn[wire] == link.ID() {
		return nil
	}
	if err := d.send(ctx, link, protocol.PurposeSubscribe, wire); err != nil {
		d.logger.Warn("subscribe failed", slog.String("event", string(wire)), slogx.Error(err))
		return nil
	}
	d.subscribedOn[wire] = link.ID()
	return nil
}

// Unregister removes the handler for name and sends an unsubscribe frame on the active
// connection, if any. No acknowledgement is awaited.
func (d *Dispatcher) Unregister(ctx context.Context, name string) error {
	wire, err := resolveName(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers.Delete(wire)
	delete(d.subscribedOn, wire)

	link, ok := d.active()
	if !ok {
		return nil
	}
	if err := d.send(ctx, link, protocol.PurposeUnsubscribe, wire); err != nil {
		d.logger.Warn("unsubscribe failed", slog.String("event", string(wire)), slogx.Error(err))
	}
	return nil
}

// Subscribe sends a subscribe frame for name on the active connection without registering
// a handler.
func (d *Dispatcher) Subscribe(ctx context.Context, name string) error {
	wire, err := resolveName(name)
	if err != nil {
		return err
	}

	link, ok := d.active()
	if !ok {
		return bedrocknet.ErrNotConnected
	}
	return d.send(ctx, link, protocol.PurposeSubscribe, wire)
}

// Resubscribe sends a subscribe frame on link for every registered handler not yet
// subscribed on it, in registration order. It returns the number of frames sent.
func (d *Dispatcher) Resubscribe(ctx context.Context, link Link) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	sent := 0
	for pair := d.handlers.Oldest(); pair != nil; pair = pair.Next() {
		if d.subscribedOn[pair.Key] == link.ID() {
			continue
		}
		if err := d.send(ctx, link, protocol.PurposeSubscribe, pair.Key); err != nil {
			d.logger.Warn("resubscribe failed",
				slog.String("event", string(pair.Key)),
				slog.String("conn_id", link.ID()),
				slogx.Error(err),
			)
			continue
		}
		d.subscribedOn[pair.Key] = link.ID()
		sent++
	}
	return sent
}

// Names returns the registered wire event names in registration order.
func (d *Dispatcher) Names() []events.Name {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]events.Name, 0, d.handlers.Len())
	for pair := d.handlers.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Dispatch schedules the handler registered for name with event. Events without a handler
// are dropped. It reports whether a handler was scheduled.
func (d *Dispatcher) Dispatch(name events.Name, event events.Event) bool {
	d.mu.RLock()
	handler, ok := d.handlers.Get(name)
	closed := d.closed
	if ok && !closed {
		d.wg.Add(1)
	}
	d.mu.RUnlock()

	if !ok {
		d.logger.Debug("no handler for event", slog.String("event", string(name)))
		return false
	}
	if closed {
		return false
	}

	go d.run(name, handler, event)
	return true
}

func (d *Dispatcher) run(name events.Name, handler bedrocknet.EventHandler, event events.Event) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				slog.String("event", string(name)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	handler(d.ctx, event)
}

// Close cancels the context passed to handlers and waits for running handlers to return,
// or for ctx to be done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event handlers: %w", ctx.Err())
	}
}

func (d *Dispatcher) send(ctx context.Context, link Link, purpose protocol.Purpose, name events.Name) error {
	frame, err := protocol.EncodeSubscription(uuid.NewString(), purpose, string(name))
	if err != nil {
		return err
	}
	if err := link.Send(ctx, frame); err != nil {
		return err
	}
	d.logger.Debug(string(purpose),
		slog.String("event", string(name)),
		slog.String("conn_id", link.ID()),
	)
	return nil
}
