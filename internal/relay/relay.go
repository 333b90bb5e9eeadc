// Package relay bridges the broker to NATS.
//
// Game events are published on <prefix>.events.<EventName> as {"event": name, "body": {...}}.
// Requests on <prefix>.command carry a command line, either as plain text or as
// {"commandLine": "..."}, and are answered with {"message", "statusCode", "ok"} or {"error"}.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
)

// Bus is the subset of *nats.Conn the relay uses.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Issuer issues commands to the game client.
type Issuer interface {
	IssueCommand(ctx context.Context, commandLine string) (*bedrocknet.CommandResult, error)
}

type Relay struct {
	bus    Bus
	prefix string
	issuer Issuer
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a relay publishing under prefix.
func New(bus Bus, prefix string, issuer Issuer, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		bus:    bus,
		prefix: strings.TrimSuffix(prefix, "."),
		issuer: issuer,
		logger: logger.With(slogx.LoggerName("relay")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// EventSubject returns the subject events named name are published on.
func (r *Relay) EventSubject(name events.Name) string {
	return r.prefix + ".events." + string(name)
}

// CommandSubject returns the subject command requests are served on.
func (r *Relay) CommandSubject() string {
	return r.prefix + ".command"
}

// Forward publishes an event. Its signature matches bedrocknet.EventHandler.
func (r *Relay) Forward(_ context.Context, ev events.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("encode event", slog.String("event", string(ev.EventName())), slogx.Error(err))
		return
	}

	payload, _ := sjson.Set(`{}`, "event", string(ev.EventName()))
	payload, err = sjson.SetRaw(payload, "body", string(body))
	if err != nil {
		r.logger.Error("encode event", slog.String("event", string(ev.EventName())), slogx.Error(err))
		return
	}

	subject := r.EventSubject(ev.EventName())
	if err := r.bus.Publish(subject, []byte(payload)); err != nil {
		r.logger.Warn("publish event", slog.String("subject", subject), slogx.Error(err))
	}
}

// Start serves command requests until Close.
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("relay closed")
	}
	if r.started {
		return fmt.Errorf("relay already started")
	}

	sub, err := r.bus.Subscribe(r.CommandSubject(), r.handleCommand)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.CommandSubject(), err)
	}
	r.started = true
	r.sub = sub
	r.logger.Info("relaying", slog.String("commands", r.CommandSubject()), slog.String("events", r.prefix+".events.>"))
	return nil
}

func (r *Relay) handleCommand(msg *nats.Msg) {
	commandLine := parseCommandLine(msg.Data)
	if msg.Reply == "" {
		r.logger.Debug("command request without reply subject", slog.String("command", commandLine))
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		var reply []byte
		if commandLine == "" {
			reply = errorReply("empty command line")
		} else {
			res, err := r.issuer.IssueCommand(r.ctx, commandLine)
			if err != nil {
				reply = errorReply(err.Error())
			} else {
				reply = resultReply(res)
			}
		}

		if msg.Reply == "" {
			return
		}
		if err := r.bus.Publish(msg.Reply, reply); err != nil {
			r.logger.Warn("reply to command", slog.String("command", commandLine), slogx.Error(err))
		}
	}()
}

// Close stops serving commands, cancels commands in flight and waits for their replies.
func (r *Relay) Close() error {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.closed = true
	r.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	r.cancel()
	r.wg.Wait()
	return err
}

func parseCommandLine(data []byte) string {
	if gjson.ValidBytes(data) {
		switch parsed := gjson.ParseBytes(data); {
		case parsed.IsObject():
			return strings.TrimSpace(parsed.Get("commandLine").String())
		case parsed.Type == gjson.String:
			return strings.TrimPrefix(strings.TrimSpace(parsed.Str), "/")
		}
	}
	return strings.TrimPrefix(strings.TrimSpace(string(data)), "/")
}

func resultReply(res *bedrocknet.CommandResult) []byte {
	out, _ := sjson.SetBytes([]byte(`{}`), "message", res.Message)
	out, _ = sjson.SetBytes(out, "statusCode", res.StatusCode)
	out, _ = sjson.SetBytes(out, "ok", res.OK())
	return out
}

func errorReply(msg string) []byte {
	out, _ := sjson.SetBytes([]byte(`{}`), "error", msg)
	return out
}
