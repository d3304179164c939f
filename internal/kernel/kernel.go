// Package kernel drives an external code-execution backend: one Session per
// render submits code fragments in order, collects the messages each one
// emits until the backend reports it idle, and normalizes them into typed
// outputs.
package kernel

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors for kernel operations.
var (
	ErrStart          = errors.New("interpreter failed to start")
	ErrSessionClosed  = errors.New("session is shut down")
	ErrPollTimeout    = errors.New("no message before poll timeout")
	ErrConnection     = errors.New("kernel connection failed")
	ErrImageSerialize = errors.New("cannot serialize image output")
)

// Message types relevant to an execution.
const (
	MsgStream        = "stream"
	MsgDisplayData   = "display_data"
	MsgExecuteResult = "execute_result"
	MsgError         = "error"
	MsgStatus        = "status"
	MsgExecuteInput  = "execute_input"
)

// Message is one output-channel record emitted by the backend.
type Message struct {
	ID       string
	ParentID string
	Type     string
	Content  Content
}

// Content is the union of the content fields this package reads.
type Content struct {
	Name           string         `json:"name,omitempty"`
	Text           any            `json:"text,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Traceback      []string       `json:"traceback,omitempty"`
	ExecutionState string         `json:"execution_state,omitempty"`
}

// Idle reports whether m signals that the request parentID finished.
func (m Message) Idle(parentID string) bool {
	return m.Type == MsgStatus && m.Content.ExecutionState == "idle" && m.ParentID == parentID
}

// Backend is an interpreter connection. Implementations need not be safe for
// concurrent use; Session serializes every call.
type Backend interface {
	// Ready acquires the interpreter and blocks until it accepts code.
	Ready(ctx context.Context) error
	// Submit sends code for execution and returns the request id that
	// output messages carry as their parent.
	Submit(ctx context.Context, code string) (string, error)
	// Next returns the next output message, or ErrPollTimeout when none
	// arrives within timeout.
	Next(ctx context.Context, timeout time.Duration) (Message, error)
	// Shutdown releases the interpreter.
	Shutdown(ctx context.Context) error
}

// MimeText returns a mime-bundle entry as a string. Notebook files store
// multi-line values as lists of lines.
func MimeText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		var sb strings.Builder
		for _, item := range val {
			if s, ok := item.(string); ok {
				sb.WriteString(s)
			}
		}
		return sb.String()
	case []string:
		return strings.Join(val, "")
	}
	return ""
}
