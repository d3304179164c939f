// Package kerneltest provides an in-memory kernel backend for tests.
package kerneltest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alnah/go-mdpost/internal/kernel"
)

// Backend is a scripted interpreter. Each submitted code string is looked up
// in the script; its messages are queued parented to the request, wrapped in
// busy/idle status messages. Unscripted code produces no output.
type Backend struct {
	// ReadyErr is returned by Ready.
	ReadyErr error
	// Hang lists code whose idle status never arrives.
	Hang map[string]bool

	mu        sync.Mutex
	script    map[string][]kernel.Message
	submitted []string
	queue     []kernel.Message
	shutdowns int
	seq       int
}

// New returns an empty scripted backend.
func New() *Backend {
	return &Backend{script: make(map[string][]kernel.Message), Hang: make(map[string]bool)}
}

// On scripts the messages emitted when code is submitted.
func (b *Backend) On(code string, msgs ...kernel.Message) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.script[code] = msgs
	return b
}

// Inject queues a message as if the kernel emitted it unprompted.
func (b *Backend) Inject(msg kernel.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, msg)
}

func (b *Backend) Ready(ctx context.Context) error {
	return b.ReadyErr
}

func (b *Backend) Submit(ctx context.Context, code string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := fmt.Sprintf("req-%d", b.seq)
	b.submitted = append(b.submitted, code)

	b.queue = append(b.queue,
		kernel.Message{ParentID: id, Type: kernel.MsgStatus, Content: kernel.Content{ExecutionState: "busy"}},
		kernel.Message{ParentID: id, Type: kernel.MsgExecuteInput},
	)
	for _, m := range b.script[code] {
		m.ParentID = id
		b.queue = append(b.queue, m)
	}
	if !b.Hang[code] {
		b.queue = append(b.queue,
			kernel.Message{ParentID: id, Type: kernel.MsgStatus, Content: kernel.Content{ExecutionState: "idle"}})
	}
	return id, nil
}

func (b *Backend) Next(ctx context.Context, timeout time.Duration) (kernel.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return kernel.Message{}, err
	}
	if len(b.queue) == 0 {
		return kernel.Message{}, kernel.ErrPollTimeout
	}
	m := b.queue[0]
	b.queue = b.queue[1:]
	return m, nil
}

func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdowns++
	return nil
}

// Submitted returns every code string submitted so far.
func (b *Backend) Submitted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.submitted...)
}

// Shutdowns returns how many times Shutdown was called.
func (b *Backend) Shutdowns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdowns
}

// Stream builds a stdout stream message.
func Stream(text string) kernel.Message {
	return kernel.Message{Type: kernel.MsgStream, Content: kernel.Content{Name: "stdout", Text: text}}
}

// Result builds an execute_result message with a mime bundle.
func Result(data map[string]any) kernel.Message {
	return kernel.Message{Type: kernel.MsgExecuteResult, Content: kernel.Content{Data: data}}
}

// Display builds a display_data message with a mime bundle.
func Display(data map[string]any) kernel.Message {
	return kernel.Message{Type: kernel.MsgDisplayData, Content: kernel.Content{Data: data}}
}

// Error builds an error message with a traceback.
func Error(traceback ...string) kernel.Message {
	return kernel.Message{Type: kernel.MsgError, Content: kernel.Content{Traceback: traceback}}
}

// Factory returns a session factory that always uses b.
func (b *Backend) Factory() func(context.Context) (kernel.Backend, error) {
	return func(context.Context) (kernel.Backend, error) { return b, nil }
}
