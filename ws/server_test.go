package ws_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/ws"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := ws.NewConfig("localhost:9000")
	require.NoError(t, err)

	assert.Equal(t, "localhost:9000", cfg.Addr)
	require.NotNil(t, cfg.RateLimitConfig)
	assert.True(t, cfg.RateLimitConfig.Enabled)
	assert.Zero(t, cfg.CommandTimeout)
	assert.Zero(t, cfg.MaxInFlight)
	assert.Nil(t, cfg.CheckOrigin)
}

func TestNewConfigOptions(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	decoder := func(name events.Name, body []byte) (events.Event, error) {
		return events.Decode(name, body)
	}
	onReady := func(context.Context, bedrocknet.Lifecycle) {}

	cfg, err := ws.NewConfig("",
		ws.WithPath("/mc"),
		ws.WithLogger(logger),
		ws.WithRateLimit(10, 20),
		ws.WithCheckOrigin(ws.AllOrigins()),
		ws.WithCommandTimeout(5*time.Second),
		ws.WithMaxInFlight(8),
		ws.WithDecoder(decoder),
		ws.OnReady(onReady),
		ws.OnConnect(onReady),
		ws.OnDisconnect(onReady),
	)
	require.NoError(t, err)

	assert.Equal(t, "/mc", cfg.Path)
	assert.Same(t, logger, cfg.Logger)
	assert.EqualValues(t, 10, cfg.RateLimitConfig.MessagesPerSecond)
	assert.Equal(t, 20, cfg.RateLimitConfig.Burst)
	assert.True(t, cfg.RateLimitConfig.Enabled)
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout)
	assert.EqualValues(t, 8, cfg.MaxInFlight)
	assert.NotNil(t, cfg.Decoder)
	assert.NotNil(t, cfg.OnReady)
	assert.NotNil(t, cfg.OnConnect)
	assert.NotNil(t, cfg.OnDisconnect)
	require.NotNil(t, cfg.CheckOrigin)
	assert.True(t, cfg.CheckOrigin(httptest.NewRequest("GET", "/", nil)))
}

func TestNewConfigRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		option ws.Option
	}{
		{"zero rate", ws.WithRateLimit(0, 10)},
		{"zero burst", ws.WithRateLimit(10, 0)},
		{"negative timeout", ws.WithCommandTimeout(-time.Second)},
		{"negative max in flight", ws.WithMaxInFlight(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ws.NewConfig("", tt.option)
			assert.Error(t, err)
		})
	}
}

func TestNewConfigDisablesRateLimit(t *testing.T) {
	t.Parallel()

	cfg, err := ws.NewConfig("", ws.WithRateLimitConfig(ws.NoRateLimit()))
	require.NoError(t, err)
	assert.False(t, cfg.RateLimitConfig.Enabled)
}

func TestNewBroker(t *testing.T) {
	t.Parallel()

	ready := make(chan bedrocknet.Lifecycle, 1)
	cfg, err := ws.NewConfig("127.0.0.1:0", ws.OnReady(func(_ context.Context, lc bedrocknet.Lifecycle) {
		ready <- lc
	}))
	require.NoError(t, err)

	broker := ws.New(cfg)
	assert.Equal(t, bedrocknet.StateIdle, broker.State())

	ctx := context.Background()
	require.NoError(t, broker.Start(ctx))
	t.Cleanup(func() { broker.Stop(ctx) })

	select {
	case lc := <-ready:
		assert.Equal(t, "127.0.0.1", lc.Host)
		assert.NotZero(t, lc.Port)
	case <-time.After(time.Second):
		t.Fatal("no ready notification")
	}
	assert.Equal(t, bedrocknet.StateListening, broker.State())
}
