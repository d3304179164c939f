package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeouts.
const (
	DefaultStartupTimeout = 60 * time.Second
	DefaultPollTimeout    = 10 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUnstarted State = iota
	StateReady
	StateBusy
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateShutDown:
		return "shut down"
	default:
		return "unstarted"
	}
}

// Options configure a Session.
type Options struct {
	StartupTimeout time.Duration
	PollTimeout    time.Duration
	// Images serializes image outputs to disk; nil embeds them inline.
	Images *ImageStore
	Logger *zap.Logger
}

// Session is one interpreter connection owned by one render. Code runs
// strictly in submission order and shares one namespace.
type Session struct {
	backend Backend
	opts    Options
	log     *zap.Logger

	mu      sync.Mutex
	state   State
	counter int
	pending map[string][]Message
}

// New acquires the backend and waits until it is ready. On failure the
// backend is shut down and ErrStart is returned.
func New(ctx context.Context, backend Backend, opts Options) (*Session, error) {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = DefaultStartupTimeout
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		backend: backend,
		opts:    opts,
		log:     opts.Logger.Named("kernel"),
		state:   StateUnstarted,
		pending: make(map[string][]Message),
	}

	readyCtx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
	defer cancel()
	if err := backend.Ready(readyCtx); err != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancelShutdown()
		_ = backend.Shutdown(shutdownCtx)
		return nil, fmt.Errorf("%w: %v", ErrStart, err)
	}

	if opts.Images != nil {
		if err := opts.Images.Reset(); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.state = StateReady
	s.log.Debug("kernel ready")
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Execute runs code and returns its normalized outputs in emission order.
// Errors raised by the code itself are outputs, not errors. A poll timeout
// ends collection and returns what arrived so far.
func (s *Session) Execute(ctx context.Context, code string) ([]Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.run(ctx, code)
	if err != nil {
		return nil, err
	}

	block := s.counter
	s.counter++

	var (
		outputs []Output
		stream  = -1
		prev    string
	)
	for idx, msg := range msgs {
		out, ok, err := Normalize(msg, s.opts.Images, block, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// Adjacent chunks of one stream are a single console write.
		if msg.Type == MsgStream && stream >= 0 && stream == len(outputs)-1 && prev == msg.Content.Name {
			outputs[stream].Content += out.Content
			continue
		}
		outputs = append(outputs, out)
		stream, prev = -1, ""
		if msg.Type == MsgStream {
			stream, prev = len(outputs)-1, msg.Content.Name
		}
	}
	return outputs, nil
}

// Prepare runs setup code whose output is discarded, such as changing the
// working directory. It does not advance the image counter.
func (s *Session) Prepare(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.run(ctx, code)
	return err
}

// run submits code and collects every message parented to it until the
// backend reports idle. Caller holds mu.
func (s *Session) run(ctx context.Context, code string) ([]Message, error) {
	if s.state == StateShutDown {
		return nil, ErrSessionClosed
	}
	if s.state != StateReady {
		return nil, fmt.Errorf("%w: session is %s", ErrSessionClosed, s.state)
	}

	id, err := s.backend.Submit(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: submit: %v", ErrConnection, err)
	}
	s.state = StateBusy
	defer func() {
		if s.state == StateBusy {
			s.state = StateReady
		}
	}()

	var collected []Message
	buffered := s.pending[id]
	delete(s.pending, id)

	for {
		var msg Message
		if len(buffered) > 0 {
			msg, buffered = buffered[0], buffered[1:]
		} else {
			msg, err = s.backend.Next(ctx, s.opts.PollTimeout)
			if errors.Is(err, ErrPollTimeout) {
				s.log.Warn("poll timeout, returning partial output",
					zap.Duration("timeout", s.opts.PollTimeout),
					zap.Int("messages", len(collected)))
				return collected, nil
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConnection, err)
			}
		}

		if msg.ParentID != id {
			// Late output of an earlier, timed-out request.
			s.pending[msg.ParentID] = append(s.pending[msg.ParentID], msg)
			continue
		}
		if msg.Idle(id) {
			return collected, nil
		}
		if msg.Type == MsgStatus {
			continue
		}
		collected = append(collected, msg)
	}
}

// Close shuts the backend down. Repeated calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateShutDown {
		return nil
	}
	s.state = StateShutDown
	s.pending = nil

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.backend.Shutdown(ctx); err != nil {
		s.log.Warn("kernel shutdown failed", zap.Error(err))
		return fmt.Errorf("%w: shutdown: %v", ErrConnection, err)
	}
	s.log.Debug("kernel shut down")
	return nil
}
