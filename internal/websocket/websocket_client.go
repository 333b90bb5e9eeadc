package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/internal/protocol"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Client implements the bedrocknet.Connection interface for the connected game client.
type Client struct {
	id          string
	conn        *websocket.Conn
	remoteAddr  string
	ctx         context.Context
	cancel      context.CancelFunc
	sendCh      chan []byte
	mu          sync.RWMutex
	closed      bool
	local       bool          // closed by this side
	rateLimiter *rate.Limiter // Rate limiter for incoming frames
	logger      *slog.Logger
}

var _ bedrocknet.Connection = (*Client)(nil)

// NewClient wraps an upgraded connection and starts its write pump.
func NewClient(conn *websocket.Conn, remoteAddr string, rateLimitConfig *RateLimitConfig, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	var limiter *rate.Limiter
	if rateLimitConfig != nil && rateLimitConfig.Enabled {
		limiter = rate.NewLimiter(rateLimitConfig.MessagesPerSecond, rateLimitConfig.Burst)
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New().String()
	client := &Client{
		id:          id,
		conn:        conn,
		remoteAddr:  remoteAddr,
		ctx:         ctx,
		cancel:      cancel,
		sendCh:      make(chan []byte, sendBufferSize),
		rateLimiter: limiter,
		logger:      logger.With(slog.String("conn_id", id)),
	}

	go client.writePump()

	return client
}

// ID returns a unique identifier for the connection
func (c *Client) ID() string {
	return c.id
}

// RemoteAddr returns the game client's network address
func (c *Client) RemoteAddr() string {
	return c.remoteAddr
}

// Context returns the connection's lifecycle context
func (c *Client) Context() context.Context {
	return c.ctx
}

// Send queues an encoded frame for the write pump
func (c *Client) Send(ctx context.Context, frame []byte) error {
	if len(frame) > protocol.MaxFrameSize {
		return fmt.Errorf("%w: frame size %d exceeds maximum %d bytes", bedrocknet.ErrFailedToEncode, len(frame), protocol.MaxFrameSize)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return bedrocknet.ErrConnectionClosed
	}

	// Keep the lock while sending to prevent race with Close()
	select {
	case c.sendCh <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return bedrocknet.ErrConnectionClosed
	}
}

// Close closes the connection
func (c *Client) Close(ctx context.Context) error {
	return c.CloseWithCode(ctx, websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the connection with a close code and optional reason
func (c *Client) CloseWithCode(ctx context.Context, code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.local = true

	message := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, message, deadline)

	c.cancel()
	close(c.sendCh)
	return c.conn.Close()
}

// markRemoteClosed records that the read loop ended because the peer went away.
func (c *Client) markRemoteClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.sendCh)
	_ = c.conn.Close()
}

// closedLocally reports whether this side closed the connection.
func (c *Client) closedLocally() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local
}

// IsAlive returns true if the connection is still active
func (c *Client) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Throttle waits until the rate limiter admits the next inbound frame.
// It returns an error only when the connection closes while waiting.
func (c *Client) Throttle() error {
	if c.rateLimiter == nil {
		// Rate limiting disabled
		return nil
	}
	return c.rateLimiter.Wait(c.ctx)
}

// writePump pumps frames from the send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks senders waiting on a full queue.
		c.cancel()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn("write failed", slogx.Error(err))
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
