package correlator

import (
	"context"
	"sync"
	"time"

	"github.com/luciancaetano/bedrocknet"
)

// Slot is a single-assignment holder for the result of one command.
//
// It settles exactly once, with either a result or an error, and can be read any number
// of times afterwards.
type Slot struct {
	id       string
	issuedAt time.Time

	once   sync.Once
	done   chan struct{}
	result *bedrocknet.CommandResult
	err    error
}

func newSlot(id string) *Slot {
	return &Slot{
		id:       id,
		issuedAt: time.Now(),
		done:     make(chan struct{}),
	}
}

// ID returns the correlation identifier of the command.
func (s *Slot) ID() string {
	return s.id
}

// IssuedAt returns when the slot was created.
func (s *Slot) IssuedAt() time.Time {
	return s.issuedAt
}

// Done is closed once the slot has settled.
func (s *Slot) Done() <-chan struct{} {
	return s.done
}

// settle stores the outcome. Only the first call has any effect; it reports whether
// this call settled the slot.
func (s *Slot) settle(result *bedrocknet.CommandResult, err error) bool {
	settled := false
	s.once.Do(func() {
		s.result = result
		s.err = err
		close(s.done)
		settled = true
	})
	return settled
}

// Result returns the outcome of a settled slot. It must not be called before Done is closed.
func (s *Slot) Result() (*bedrocknet.CommandResult, error) {
	return s.result, s.err
}

// Wait blocks until the slot settles or ctx is done.
func (s *Slot) Wait(ctx context.Context) (*bedrocknet.CommandResult, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
