package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/internal/correlator"
	"github.com/luciancaetano/bedrocknet/internal/dispatcher"
	"github.com/luciancaetano/bedrocknet/internal/protocol"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
)

// CheckOriginFn is a function that validates the origin of a WebSocket connection request.
// The Bedrock client sends no Origin header, so a nil CheckOriginFn (same-origin check)
// already admits it.
type CheckOriginFn = func(r *http.Request) bool

// ServerConfig configures a Server.
type ServerConfig struct {
	// Addr is the listening address, "localhost:8000" when empty.
	Addr string
	// Path the game client connects to, "/" when empty.
	Path            string
	RateLimitConfig *RateLimitConfig
	CheckOrigin     CheckOriginFn

	OnReady      bedrocknet.LifecycleFn
	OnConnect    bedrocknet.LifecycleFn
	OnDisconnect bedrocknet.LifecycleFn

	// CommandTimeout bounds the wait for each command response. Zero waits indefinitely.
	CommandTimeout time.Duration
	// MaxInFlight bounds the number of commands awaiting a response. Zero is unbounded.
	MaxInFlight int64

	// Decoder turns event bodies into typed events, events.Decode when nil.
	Decoder events.DecodeFunc
	Logger  *slog.Logger
}

// RateLimitConfig defines rate limiting of inbound frames
type RateLimitConfig struct {
	// MessagesPerSecond defines how many frames are read per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 100 frames per second with burst of 200
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// Server implements the bedrocknet.Broker interface.
//
// It owns the listening socket and the single active connection, routes inbound frames
// to the correlator and the dispatcher, and emits lifecycle notifications.
type Server struct {
	addr     string
	path     string
	server   *http.Server
	listener net.Listener

	rateLimitConfig *RateLimitConfig
	upgrader        websocket.Upgrader
	onReady         bedrocknet.LifecycleFn
	onConnect       bedrocknet.LifecycleFn
	onDisconnect    bedrocknet.LifecycleFn
	decode          events.DecodeFunc
	logger          *slog.Logger

	correlator *correlator.Correlator
	dispatcher *dispatcher.Dispatcher

	mu        sync.RWMutex
	state     bedrocknet.State
	active    *Client
	loops     sync.WaitGroup // read loops of accepted connections
	serveDone chan struct{}
}

var _ bedrocknet.Broker = (*Server)(nil)

// New creates a new Server instance with the specified configuration.
//
// A nil RateLimitConfig uses DefaultRateLimitConfig().
func New(cfg *ServerConfig) *Server {
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = DefaultRateLimitConfig()
	}
	if cfg.Addr == "" {
		cfg.Addr = bedrocknet.DefaultAddr
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.Decoder == nil {
		cfg.Decoder = events.Decode
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:            cfg.Addr,
		path:            cfg.Path,
		rateLimitConfig: cfg.RateLimitConfig,
		onReady:         cfg.OnReady,
		onConnect:       cfg.OnConnect,
		onDisconnect:    cfg.OnDisconnect,
		decode:          cfg.Decoder,
		logger:          logger.With(slogx.LoggerName("bedrocknet")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
	s.correlator = correlator.New(correlator.Config{
		Timeout:     cfg.CommandTimeout,
		MaxInFlight: cfg.MaxInFlight,
		Logger:      s.logger,
	})
	s.dispatcher = dispatcher.New(s.activeLink, s.logger)
	return s
}

// Start binds the listening socket and serves the game client in the background
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	switch s.state {
	case bedrocknet.StateIdle:
	case bedrocknet.StateClosed:
		s.mu.Unlock()
		return bedrocknet.ErrServerClosed
	default:
		s.mu.Unlock()
		return bedrocknet.ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)

	s.listener = ln
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serveDone = make(chan struct{})
	s.state = bedrocknet.StateListening
	srv, done := s.server, s.serveDone
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", slogx.Error(err))
		}
	}()

	lc := s.lifecycle(nil)
	s.logger.Info("listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("connect", fmt.Sprintf("/connect ws://%s:%d%s", lc.Host, lc.Port, s.path)),
	)
	s.notify(ctx, "ready", s.onReady, lc)
	return nil
}

// Stop closes the active connection and the listener, then waits for the read loop and
// event handlers within ctx. Pending commands fail with ErrCancelled.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == bedrocknet.StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = bedrocknet.StateClosed
	client, srv, serveDone := s.active, s.server, s.serveDone
	s.mu.Unlock()

	var errs []error

	if client != nil {
		if err := client.CloseWithCode(ctx, websocket.CloseGoingAway, "server stopping"); err != nil {
			s.logger.Debug("close connection", slogx.Error(err))
		}
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown listener: %w", err))
		}
		if err := wait(ctx, serveDone); err != nil {
			errs = append(errs, fmt.Errorf("waiting for listener: %w", err))
		}
	}

	loopsDone := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(loopsDone)
	}()
	if err := wait(ctx, loopsDone); err != nil {
		errs = append(errs, fmt.Errorf("waiting for read loop: %w", err))
	}

	if err := s.dispatcher.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	s.correlator.CancelAll()
	s.logger.Info("stopped")
	return errors.Join(errs...)
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the bound address once started, the configured one before
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// State returns the current connection state
func (s *Server) State() bedrocknet.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connection returns the active connection, if any
func (s *Server) Connection() (bedrocknet.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, false
	}
	return s.active, true
}

func (s *Server) activeLink() (dispatcher.Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, false
	}
	return s.active, true
}

// IssueCommand sends a command to the game client and waits for its result
func (s *Server) IssueCommand(ctx context.Context, commandLine string) (*bedrocknet.CommandResult, error) {
	var link correlator.Link
	if l, ok := s.activeLink(); ok {
		link = l
	}
	return s.correlator.Issue(ctx, link, commandLine)
}

// Register installs the handler for an event name and subscribes to it
func (s *Server) Register(ctx context.Context, name string, handler bedrocknet.EventHandler) error {
	return s.dispatcher.Register(ctx, name, handler)
}

// Unregister removes the handler for an event name and unsubscribes from it
func (s *Server) Unregister(ctx context.Context, name string) error {
	return s.dispatcher.Unregister(ctx, name)
}

// Subscribe sends a subscribe frame without installing a handler
func (s *Server) Subscribe(ctx context.Context, name string) error {
	return s.dispatcher.Subscribe(ctx, name)
}

// Pending returns the number of commands awaiting a response
func (s *Server) Pending() int {
	return s.correlator.Pending()
}

// handleWebSocket accepts the game client's connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if _, busy := s.activeLink(); busy {
		s.logger.Warn("rejecting connection", slog.String("remote_addr", r.RemoteAddr), slogx.Error(bedrocknet.ErrConnectionRejected))
		http.Error(w, bedrocknet.ErrConnectionRejected.Error(), http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		s.logger.Warn("upgrade failed", slog.String("remote_addr", r.RemoteAddr), slogx.Error(err))
		return
	}
	conn.SetReadLimit(protocol.MaxFrameSize + 1)

	client := NewClient(conn, r.RemoteAddr, s.rateLimitConfig, s.logger)
	if !s.activate(client) {
		// Lost the race against another connection, or the server is stopping
		s.logger.Warn("rejecting connection", slog.String("remote_addr", r.RemoteAddr), slogx.Error(bedrocknet.ErrConnectionRejected))
		client.CloseWithCode(context.Background(), websocket.ClosePolicyViolation, bedrocknet.ErrConnectionRejected.Error())
		return
	}

	s.handleClient(client)
}

// activate makes client the active connection unless another one is active or the
// server is closed.
func (s *Server) activate(client *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil || s.state == bedrocknet.StateClosed {
		return false
	}
	s.active = client
	s.state = bedrocknet.StateConnected
	s.loops.Add(1)
	return true
}

// deactivate clears the active connection and moves back to listening.
func (s *Server) deactivate(client *Client, voluntary bool) {
	s.mu.Lock()
	if s.active == client {
		s.active = nil
	}
	if s.state == bedrocknet.StateConnected {
		s.state = bedrocknet.StateDisconnected
	}
	s.mu.Unlock()

	lc := s.lifecycle(client)
	lc.Voluntary = voluntary
	s.logger.Info("game client disconnected",
		slog.String("conn_id", client.ID()),
		slog.String("remote_addr", client.RemoteAddr()),
		slog.Bool("voluntary", voluntary),
	)
	s.notify(context.Background(), "disconnect", s.onDisconnect, lc)

	s.mu.Lock()
	if s.state == bedrocknet.StateDisconnected {
		s.state = bedrocknet.StateListening
	}
	s.mu.Unlock()
}

// handleClient runs the receive loop of the active connection
func (s *Server) handleClient(client *Client) {
	defer s.loops.Done()
	defer func() {
		voluntary := !client.closedLocally()
		client.markRemoteClosed()
		s.deactivate(client, voluntary)
	}()

	// Set read deadline to prevent indefinite blocking
	client.conn.SetReadDeadline(time.Now().Add(pongWait))

	// Set pong handler to reset read deadline on pong
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s.logger.Info("game client connected",
		slog.String("conn_id", client.ID()),
		slog.String("remote_addr", client.RemoteAddr()),
	)

	// Subscriptions live on the game client, so every connection starts with none
	if n := s.dispatcher.Resubscribe(client.Context(), client); n > 0 {
		s.logger.Debug("resubscribed", slog.String("conn_id", client.ID()), slog.Int("count", n))
	}

	s.notify(client.Context(), "connect", s.onConnect, s.lifecycle(client))

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("unexpected close", slog.String("conn_id", client.ID()), slogx.Error(err))
			}
			return
		}

		// Reset read deadline after successful read
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := client.Throttle(); err != nil {
			return
		}

		s.route(client, data)
	}
}

// lifecycle builds the notification payload. client is nil for the ready notification.
func (s *Server) lifecycle(client *Client) bedrocknet.Lifecycle {
	s.mu.RLock()
	addr := s.addr
	if s.listener != nil {
		addr = s.listener.Addr().String()
	}
	configured := s.addr
	s.mu.RUnlock()

	host, portStr, _ := net.SplitHostPort(addr)
	if h, _, err := net.SplitHostPort(configured); err == nil && h != "" {
		host = h
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	port, _ := strconv.Atoi(portStr)

	lc := bedrocknet.Lifecycle{Host: host, Port: port}
	if client != nil {
		lc.ConnectionID = client.ID()
		lc.RemoteAddr = client.RemoteAddr()
	}
	return lc
}

func (s *Server) notify(ctx context.Context, kind string, fn bedrocknet.LifecycleFn, lc bedrocknet.Lifecycle) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("lifecycle listener panicked", slog.String("notification", kind), slog.Any("panic", r))
		}
	}()
	fn(ctx, lc)
}
