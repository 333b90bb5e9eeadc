package ws

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fogfish/opts"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/internal/websocket"
)

type RateLimitConfig = websocket.RateLimitConfig
type CheckOriginFn = websocket.CheckOriginFn
type ServerConfig = *websocket.ServerConfig

// Option configures a ServerConfig built by NewConfig.
type Option = opts.Option[websocket.ServerConfig]

// New creates a new broker serving a single Bedrock game client.
//
// Example:
//
//	cfg, err := ws.NewConfig("localhost:8000",
//	    ws.WithCommandTimeout(30*time.Second),
//	    ws.OnReady(func(ctx context.Context, lc bedrocknet.Lifecycle) {
//	        log.Printf("type /connect ws://%s:%d in the game chat", lc.Host, lc.Port)
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	broker := ws.New(cfg)
func New(cfg ServerConfig) bedrocknet.Broker {
	return websocket.New(cfg)
}

// NewConfig builds a server configuration for addr. An empty addr uses bedrocknet.DefaultAddr.
func NewConfig(addr string, options ...Option) (ServerConfig, error) {
	cfg := &websocket.ServerConfig{
		Addr:            addr,
		RateLimitConfig: websocket.DefaultRateLimitConfig(),
	}
	if err := opts.Apply(cfg, options); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	// WithPath sets the HTTP path the game client connects to.
	WithPath = opts.ForName[websocket.ServerConfig, string]("Path")

	// WithLogger sets the structured logger. slog.Default() is used when unset.
	WithLogger = opts.ForName[websocket.ServerConfig, *slog.Logger]("Logger")

	// WithRateLimitConfig replaces the inbound rate limit configuration.
	WithRateLimitConfig = opts.ForName[websocket.ServerConfig, *RateLimitConfig]("RateLimitConfig")
)

// WithRateLimit throttles inbound frames to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		if perSecond <= 0 || burst < 1 {
			return fmt.Errorf("invalid rate limit %v/s with burst %d", perSecond, burst)
		}
		c.RateLimitConfig = &RateLimitConfig{
			MessagesPerSecond: rate.Limit(perSecond),
			Burst:             burst,
			Enabled:           true,
		}
		return nil
	})
}

// WithCheckOrigin sets the origin check of the WebSocket upgrade.
func WithCheckOrigin(fn CheckOriginFn) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		c.CheckOrigin = fn
		return nil
	})
}

// WithCommandTimeout bounds the wait for each command response. Zero waits indefinitely.
func WithCommandTimeout(d time.Duration) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		if d < 0 {
			return fmt.Errorf("negative command timeout %s", d)
		}
		c.CommandTimeout = d
		return nil
	})
}

// WithMaxInFlight bounds the number of commands awaiting a response. Zero is unbounded.
func WithMaxInFlight(n int64) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		if n < 0 {
			return fmt.Errorf("negative max in flight %d", n)
		}
		c.MaxInFlight = n
		return nil
	})
}

// WithDecoder replaces the event body decoder.
func WithDecoder(fn events.DecodeFunc) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		c.Decoder = fn
		return nil
	})
}

// OnReady is called once the listening socket is bound.
func OnReady(fn bedrocknet.LifecycleFn) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		c.OnReady = fn
		return nil
	})
}

// OnConnect is called when a game client connection becomes active, after pending
// subscriptions were sent and before the receive loop starts.
func OnConnect(fn bedrocknet.LifecycleFn) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		c.OnConnect = fn
		return nil
	})
}

// OnDisconnect is called when the active connection ends.
func OnDisconnect(fn bedrocknet.LifecycleFn) Option {
	return opts.Type[websocket.ServerConfig](func(c *websocket.ServerConfig) error {
		c.OnDisconnect = fn
		return nil
	})
}

// AllOrigins returns the default checkOrigin function that allows all origins
func AllOrigins() CheckOriginFn {
	return func(r *http.Request) bool {
		return true
	}
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}
