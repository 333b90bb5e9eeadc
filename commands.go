package bedrocknet

import (
	"errors"
	"fmt"
)

// DefaultAddr is the address the game client is told to /connect to when none is configured.
const DefaultAddr = "localhost:8000"

// Standard errors
var (
	// Connection errors
	ErrNotConnected         = errors.New("no game client connected")
	ErrConnectionClosed     = errors.New("connection is closed")
	ErrConnectionRejected   = errors.New("another client is already connected")
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerClosed         = errors.New("server closed")

	// Protocol errors
	ErrUnknownEvent    = errors.New("unknown event")
	ErrProtocolDecode  = errors.New("invalid message format")
	ErrFailedToEncode  = errors.New("failed to encode message")
	ErrUnknownResponse = errors.New("late or unknown response")

	// Command errors
	ErrCancelled = errors.New("command cancelled")
	ErrTimeout   = errors.New("command timed out")
)

// CommandResult is the game client's answer to a command.
type CommandResult struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// OK reports whether the command was executed successfully.
func (r *CommandResult) OK() bool {
	return r.StatusCode == 0
}

// Err returns a *CommandError when the command failed, nil otherwise.
func (r *CommandResult) Err() error {
	if r.OK() {
		return nil
	}
	return &CommandError{StatusCode: r.StatusCode, Message: r.Message}
}

// CommandError is returned by CommandResult.Err for a non-zero status code.
type CommandError struct {
	StatusCode int
	Message    string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed with status %d: %s", e.StatusCode, e.Message)
}
