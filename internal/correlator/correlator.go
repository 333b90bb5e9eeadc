package correlator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/internal/protocol"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
)

// Link is the connection a command frame is written to.
type Link interface {
	ID() string
	Send(ctx context.Context, frame []byte) error
}

// Config configures a Correlator.
type Config struct {
	// Timeout bounds the wait for each response. Zero waits until the response arrives,
	// the caller's context is done or the correlator is cancelled.
	Timeout time.Duration

	// MaxInFlight bounds the number of commands awaiting a response. Zero is unbounded.
	MaxInFlight int64

	Logger *slog.Logger
}

// Correlator matches command responses to the commands that caused them.
//
// Every command gets a fresh UUID as correlation identifier and a pending Slot keyed by it.
// A slot leaves the table exactly once: when its response is resolved, when the caller
// gives up on it, or when the correlator is cancelled.
type Correlator struct {
	pending *haxmap.Map[string, *Slot]
	timeout time.Duration
	gate    *semaphore.Weighted
	logger  *slog.Logger
}

// New creates a Correlator.
func New(cfg Config) *Correlator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Correlator{
		pending: haxmap.New[string, *Slot](),
		timeout: cfg.Timeout,
		logger:  logger.With(slogx.LoggerName("correlator")),
	}
	if cfg.MaxInFlight > 0 {
		c.gate = semaphore.NewWeighted(cfg.MaxInFlight)
	}
	return c
}

// Issue sends commandLine over link and waits for its result.
//
// A nil link fails with ErrNotConnected before anything is registered.
func (c *Correlator) Issue(ctx context.Context, link Link, commandLine string) (*bedrocknet.CommandResult, error) {
	if link == nil {
		return nil, bedrocknet.ErrNotConnected
	}

	if c.gate != nil {
		if err := c.gate.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: %w", bedrocknet.ErrCancelled, err)
		}
		defer c.gate.Release(1)
	}

	id := uuid.NewString()
	frame, err := protocol.EncodeCommand(id, commandLine)
	if err != nil {
		return nil, err
	}

	slot := c.Track(id)
	if err := link.Send(ctx, frame); err != nil {
		c.pending.Del(id)
		if errors.Is(err, bedrocknet.ErrConnectionClosed) {
			return nil, fmt.Errorf("%w: %w", bedrocknet.ErrNotConnected, err)
		}
		return nil, err
	}

	c.logger.Debug("command sent",
		slog.String("request_id", id),
		slog.String("conn_id", link.ID()),
		slog.String("command", commandLine),
	)

	return c.await(ctx, slot)
}

func (c *Correlator) await(ctx context.Context, slot *Slot) (*bedrocknet.CommandResult, error) {
	waitCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeoutCause(ctx, c.timeout, bedrocknet.ErrTimeout)
		defer cancel()
	}

	select {
	case <-slot.Done():
		return slot.Result()
	case <-waitCtx.Done():
	}

	cause := context.Cause(waitCtx)
	if !errors.Is(cause, bedrocknet.ErrTimeout) {
		cause = fmt.Errorf("%w: %w", bedrocknet.ErrCancelled, waitCtx.Err())
	}
	// The response may have won the race; whichever settled first is the outcome.
	c.Discard(slot.ID(), cause)
	<-slot.Done()
	return slot.Result()
}

// Track registers a pending slot for id.
func (c *Correlator) Track(id string) *Slot {
	slot := newSlot(id)
	c.pending.Set(id, slot)
	return slot
}

// Resolve settles the slot for requestID with the command result decoded from body.
//
// It returns false when no slot is pending for requestID: the response is late (the caller
// gave up) or unknown, and is dropped.
func (c *Correlator) Resolve(requestID string, body []byte) bool {
	slot, ok := c.pending.GetAndDel(requestID)
	if !ok {
		c.logger.Debug(bedrocknet.ErrUnknownResponse.Error(), slog.String("request_id", requestID))
		return false
	}

	result, err := protocol.DecodeCommandResponse(body)
	if err != nil {
		c.logger.Warn("invalid command response", slog.String("request_id", requestID), slogx.Error(err))
	}
	slot.settle(result, err)
	return true
}

// Discard removes the slot for requestID and fails it with err.
// It returns false when the slot had already left the table.
func (c *Correlator) Discard(requestID string, err error) bool {
	slot, ok := c.pending.GetAndDel(requestID)
	if !ok {
		return false
	}
	if err == nil {
		err = bedrocknet.ErrCancelled
	}
	slot.settle(nil, err)
	return true
}

// CancelAll fails every pending slot with ErrCancelled and returns how many were pending.
func (c *Correlator) CancelAll() int {
	var ids []string
	c.pending.ForEach(func(id string, _ *Slot) bool {
		ids = append(ids, id)
		return true
	})

	n := 0
	for _, id := range ids {
		if c.Discard(id, bedrocknet.ErrCancelled) {
			n++
		}
	}
	if n > 0 {
		c.logger.Info("cancelled pending commands", slog.Int("count", n))
	}
	return n
}

// Pending returns the number of commands awaiting a response.
func (c *Correlator) Pending() int {
	return int(c.pending.Len())
}
