package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/internal/protocol"
)

// newClientPair upgrades a loopback connection and returns the server side Client and the
// dialing side connection, which plays the game client.
func newClientPair(t *testing.T, rateLimitConfig *RateLimitConfig) (*Client, *websocket.Conn) {
	t.Helper()

	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		clients <- NewClient(conn, r.RemoteAddr, rateLimitConfig, nil)
	}))
	t.Cleanup(srv.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { peer.Close() })

	select {
	case c := <-clients:
		t.Cleanup(func() { c.Close(context.Background()) })
		return c, peer
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for upgrade")
		return nil, nil
	}
}

// TestClientID tests that each client has a unique UUID
func TestClientID(t *testing.T) {
	t.Parallel()

	a, _ := newClientPair(t, NoRateLimit())
	b, _ := newClientPair(t, NoRateLimit())

	if a.ID() == b.ID() {
		t.Errorf("duplicate ID generated: %s", a.ID())
	}
	for _, id := range []string{a.ID(), b.ID()} {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("ID %s is not a valid UUID: %v", id, err)
		}
	}
	if a.RemoteAddr() == "" {
		t.Error("RemoteAddr() should not be empty")
	}
}

// TestClientSend tests that queued frames reach the peer as text messages in order
func TestClientSend(t *testing.T) {
	t.Parallel()

	client, peer := newClientPair(t, NoRateLimit())
	ctx := context.Background()

	frames := []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}
	for _, f := range frames {
		if err := client.Send(ctx, []byte(f)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range frames {
		kind, data, err := peer.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		if kind != websocket.TextMessage {
			t.Errorf("message type = %d, want %d", kind, websocket.TextMessage)
		}
		if string(data) != want {
			t.Errorf("frame = %s, want %s", data, want)
		}
	}
}

// TestClientSendTooLarge tests that oversized frames are refused before queueing
func TestClientSendTooLarge(t *testing.T) {
	t.Parallel()

	client, _ := newClientPair(t, NoRateLimit())

	err := client.Send(context.Background(), make([]byte, protocol.MaxFrameSize+1))
	if !errors.Is(err, bedrocknet.ErrFailedToEncode) {
		t.Errorf("Send() error = %v, want %v", err, bedrocknet.ErrFailedToEncode)
	}
}

// TestClientClose tests closing with a code and the state afterwards
func TestClientClose(t *testing.T) {
	t.Parallel()

	client, peer := newClientPair(t, NoRateLimit())
	ctx := context.Background()

	if !client.IsAlive() {
		t.Fatal("new client should be alive")
	}

	if err := client.CloseWithCode(ctx, websocket.CloseGoingAway, "bye"); err != nil {
		t.Logf("CloseWithCode() error = %v", err)
	}

	if client.IsAlive() {
		t.Error("closed client should not be alive")
	}
	if !client.closedLocally() {
		t.Error("closedLocally() = false after CloseWithCode")
	}

	select {
	case <-client.Context().Done():
	case <-time.After(time.Second):
		t.Error("client context was not cancelled")
	}

	if err := client.Send(ctx, []byte(`{}`)); !errors.Is(err, bedrocknet.ErrConnectionClosed) {
		t.Errorf("Send() after close error = %v, want %v", err, bedrocknet.ErrConnectionClosed)
	}

	// Closing twice is a no-op
	if err := client.Close(ctx); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := peer.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("peer read error = %v, want close 1001", err)
	}
}

// TestClientRemoteClose tests that a peer-initiated close is not recorded as local
func TestClientRemoteClose(t *testing.T) {
	t.Parallel()

	client, _ := newClientPair(t, NoRateLimit())

	client.markRemoteClosed()

	if client.IsAlive() {
		t.Error("client should not be alive after remote close")
	}
	if client.closedLocally() {
		t.Error("closedLocally() = true after remote close")
	}
	if err := client.Send(context.Background(), []byte(`{}`)); !errors.Is(err, bedrocknet.ErrConnectionClosed) {
		t.Errorf("Send() error = %v, want %v", err, bedrocknet.ErrConnectionClosed)
	}
}

// TestClientThrottle tests rate limiter creation with different configs
func TestClientThrottle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *RateLimitConfig
		wantNil bool
	}{
		{
			name:    "with rate limiting enabled",
			config:  DefaultRateLimitConfig(),
			wantNil: false,
		},
		{
			name:    "with rate limiting disabled",
			config:  NoRateLimit(),
			wantNil: true,
		},
		{
			name:    "with nil config",
			config:  nil,
			wantNil: true,
		},
		{
			name: "with custom config disabled",
			config: &RateLimitConfig{
				MessagesPerSecond: 10,
				Burst:             20,
				Enabled:           false,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newClientPair(t, tt.config)

			if (client.rateLimiter == nil) != tt.wantNil {
				t.Errorf("rate limiter nil = %v, want nil = %v", client.rateLimiter == nil, tt.wantNil)
			}
			if err := client.Throttle(); err != nil {
				t.Errorf("Throttle() error = %v", err)
			}
		})
	}
}

// TestClientThrottleUnblocksOnClose tests that a throttled read loop is released by Close
func TestClientThrottleUnblocksOnClose(t *testing.T) {
	t.Parallel()

	client, _ := newClientPair(t, &RateLimitConfig{
		MessagesPerSecond: 0.01,
		Burst:             1,
		Enabled:           true,
	})

	if err := client.Throttle(); err != nil {
		t.Fatalf("first Throttle() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- client.Throttle() }()

	client.Close(context.Background())

	select {
	case err := <-done:
		if err == nil {
			t.Error("Throttle() should fail once the connection is closed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Throttle() did not return after Close")
	}
}

// BenchmarkClientSend benchmarks queueing frames to a live connection
func BenchmarkClientSend(b *testing.B) {
	upgrader := websocket.Upgrader{}
	clients := make(chan *Client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		clients <- NewClient(conn, r.RemoteAddr, NoRateLimit(), nil)
	}))
	defer srv.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer peer.Close()
	go func() {
		for {
			if _, _, err := peer.ReadMessage(); err != nil {
				return
			}
		}
	}()

	client := <-clients
	defer client.Close(context.Background())

	ctx := context.Background()
	data := []byte(`{"header":{},"body":{}}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := client.Send(ctx, data); err != nil {
			b.Fatal(err)
		}
	}
}
