// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/novachat/internal/api"
	"github.com/jeranaias/novachat/internal/stream"
)

// =============================================================================
// SESSION STATES
// =============================================================================

// State is the lifecycle state of a streaming session.
type State int

const (
	// StateIdle is the initial state before Run is called.
	StateIdle State = iota

	// StateStreaming means the read loop is consuming the wire.
	StateStreaming

	// StateCompleted means the stream finished with the done sentinel.
	StateCompleted

	// StateFailed means a backend error, transport failure or observer
	// panic ended the stream.
	StateFailed

	// StateCancelled means the user aborted the stream. Not an error.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// =============================================================================
// OBSERVER
// =============================================================================

// Observer receives session events. Callbacks run on the session's
// goroutine, in strict arrival order, and stop after the first terminal
// callback. Any nil function is skipped.
type Observer struct {
	// OnChunk receives each content delta (the delta, not the running total).
	OnChunk func(delta string)

	// OnToolStart announces a tool invocation.
	OnToolStart func(tool, input string)

	// OnToolEnd resolves the most recently started invocation.
	OnToolEnd func(output string)

	// OnComplete fires once with the full accumulated text.
	OnComplete func(full string)

	// OnError fires once with the failure message.
	OnError func(msg string)
}

// Stats summarizes one finished stream for telemetry.
type Stats struct {
	StartedAt    time.Time
	FirstChunkAt time.Time
	FinishedAt   time.Time
	ChunkCount   int
	ToolCount    int
	Bytes        int
	Outcome      string
}

// TimeToFirstChunk returns the latency to the first content delta, or zero
// if no chunk ever arrived.
func (s Stats) TimeToFirstChunk() time.Duration {
	if s.FirstChunkAt.IsZero() {
		return 0
	}
	return s.FirstChunkAt.Sub(s.StartedAt)
}

// Duration returns the total stream duration.
func (s Stats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives one streamed response from dispatch to terminal state.
// Create with New, start with Run (which blocks until terminal), abort with
// Cancel from any goroutine.
type Session struct {
	opener   api.StreamOpener
	req      api.StreamRequest
	observer Observer
	log      *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	body     io.ReadCloser
	buf      []byte
	accum    []string
	terminal bool

	decoder *stream.FrameDecoder
	stats   Stats

	// onSettled, when set, runs on the session goroutine once the terminal
	// state is reached, before Done is closed. The Manager uses it to apply
	// the outcome to the dispatched turn without touching it from another
	// goroutine.
	onSettled  func(State)
	settleOnce sync.Once
	done       chan struct{}
}

// New creates an idle session for one dispatch.
func New(opener api.StreamOpener, req api.StreamRequest, obs Observer) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		opener:   opener,
		req:      req,
		observer: obs,
		log:      logrus.WithField("component", "session"),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
		buf:      make([]byte, 4096),
		decoder:  stream.NewFrameDecoder(),
		done:     make(chan struct{}),
	}
}

// Done returns a channel closed after the session is terminal and fully
// settled: every observer callback has returned and no further effect of
// this session is pending.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// settle runs the settlement hook and releases Done waiters. Runs on the
// session goroutine at the end of Run.
func (s *Session) settle() {
	s.settleOnce.Do(func() {
		if s.onSettled != nil {
			s.onSettled(s.State())
		}
		close(s.done)
	})
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the response text accumulated so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinedLocked()
}

// Stats returns the stream statistics. Meaningful once terminal.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Cancel aborts the stream. Safe to call from any goroutine, any number of
// times, including on sessions already terminal (a no-op then). No observer
// callback fires for a cancellation.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	if s.state == StateStreaming {
		s.state = StateCancelled
		s.terminal = true
		s.stats.FinishedAt = time.Now()
		s.stats.Outcome = StateCancelled.String()
	} else {
		// Cancelled before Run: Run will observe the dead context.
		s.state = StateCancelled
		s.terminal = true
	}
	body := s.body
	s.mu.Unlock()

	s.cancel()
	if body != nil {
		body.Close()
	}
	s.log.Debug("session cancelled")
}

// Run opens the stream and consumes it until a terminal state is reached.
// It blocks; callers run it on its own goroutine. The returned error is
// non-nil only for failed sessions and mirrors the OnError callback.
func (s *Session) Run() error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		if state == StateCancelled {
			s.settle()
			return nil
		}
		return fmt.Errorf("session already ran (state %s)", state)
	}
	s.state = StateStreaming
	s.stats.StartedAt = time.Now()
	s.mu.Unlock()
	defer s.settle()

	body, err := s.opener.OpenStream(s.ctx, s.req)
	if err != nil {
		return s.fail(err.Error())
	}

	s.mu.Lock()
	if s.state != StateStreaming {
		// Cancelled between dispatch and here.
		s.mu.Unlock()
		body.Close()
		return nil
	}
	s.body = body
	s.mu.Unlock()
	defer body.Close()

	return s.readLoop(body)
}

// readLoop consumes the wire fragment by fragment until a terminal event,
// a transport error, or cancellation.
func (s *Session) readLoop(body io.Reader) error {
	for {
		// Cancellation wins over whatever the next read would return.
		select {
		case <-s.ctx.Done():
			return s.finishCancelled()
		default:
		}

		n, err := body.Read(s.buf)
		if n > 0 {
			s.mu.Lock()
			s.stats.Bytes += n
			s.mu.Unlock()
			for _, payload := range s.decoder.Feed(s.buf[:n]) {
				done, ferr := s.dispatch(payload)
				if done {
					return ferr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return s.finishEOF()
			}
			if s.ctx.Err() != nil {
				return s.finishCancelled()
			}
			return s.fail("stream read failed: " + err.Error())
		}
	}
}

// dispatch classifies one payload and applies it. Returns done=true when the
// event was terminal; ferr carries the failure for failed sessions.
func (s *Session) dispatch(payload string) (done bool, ferr error) {
	ev := stream.Classify(payload)

	switch ev.Kind {
	case stream.KindContent:
		s.mu.Lock()
		if s.state != StateStreaming {
			s.mu.Unlock()
			return true, nil
		}
		s.accum = append(s.accum, ev.Content)
		s.stats.ChunkCount++
		if s.stats.FirstChunkAt.IsZero() {
			s.stats.FirstChunkAt = time.Now()
		}
		s.mu.Unlock()
		return s.notify(func() {
			if s.observer.OnChunk != nil {
				s.observer.OnChunk(ev.Content)
			}
		})

	case stream.KindToolStart:
		s.mu.Lock()
		if s.state != StateStreaming {
			s.mu.Unlock()
			return true, nil
		}
		s.stats.ToolCount++
		s.mu.Unlock()
		return s.notify(func() {
			if s.observer.OnToolStart != nil {
				s.observer.OnToolStart(ev.Tool, ev.Input)
			}
		})

	case stream.KindToolEnd:
		s.mu.Lock()
		if s.state != StateStreaming {
			s.mu.Unlock()
			return true, nil
		}
		s.mu.Unlock()
		return s.notify(func() {
			if s.observer.OnToolEnd != nil {
				s.observer.OnToolEnd(ev.Output)
			}
		})

	case stream.KindDone:
		return true, s.complete()

	case stream.KindError:
		return true, s.fail(ev.Content)

	case stream.KindUnknown:
		s.log.WithField("payload", ev.Raw).Debug("dropping unrecognized event")
		return false, nil
	}
	return false, nil
}

// notify runs one observer callback, converting a panic into a failed
// terminal state.
func (s *Session) notify(fn func()) (done bool, ferr error) {
	defer func() {
		if r := recover(); r != nil {
			done = true
			ferr = s.fail(fmt.Sprintf("observer panic: %v", r))
		}
	}()
	fn()
	return false, nil
}

// complete drives the completed terminal state and the single OnComplete.
func (s *Session) complete() error {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return nil
	}
	s.terminal = true
	s.state = StateCompleted
	s.stats.FinishedAt = time.Now()
	s.stats.Outcome = StateCompleted.String()
	full := s.joinedLocked()
	s.mu.Unlock()

	s.log.WithField("chunks", s.stats.ChunkCount).Debug("session completed")
	if s.observer.OnComplete != nil {
		func() {
			// A panic after the terminal transition cannot demote the state.
			defer func() { recover() }()
			s.observer.OnComplete(full)
		}()
	}
	return nil
}

// fail drives the failed terminal state and the single OnError. The partial
// accumulation is retained and inspectable via Text.
func (s *Session) fail(msg string) error {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return nil
	}
	s.terminal = true
	s.state = StateFailed
	s.stats.FinishedAt = time.Now()
	s.stats.Outcome = StateFailed.String()
	s.mu.Unlock()

	s.log.WithField("error", msg).Debug("session failed")
	if s.observer.OnError != nil {
		func() {
			defer func() { recover() }()
			s.observer.OnError(msg)
		}()
	}
	return fmt.Errorf("stream failed: %s", msg)
}

// finishCancelled settles the cancelled state when the read loop notices a
// dead context. Cancel may have already transitioned; either way no
// callback fires.
func (s *Session) finishCancelled() error {
	s.mu.Lock()
	if !s.terminal {
		s.terminal = true
		s.state = StateCancelled
		s.stats.FinishedAt = time.Now()
		s.stats.Outcome = StateCancelled.String()
	}
	s.mu.Unlock()
	return nil
}

// finishEOF handles a wire that closed without the done sentinel. A final
// carried payload may still decode; otherwise the truncation is a failure.
func (s *Session) finishEOF() error {
	for _, payload := range s.decoder.Flush() {
		done, ferr := s.dispatch(payload)
		if done {
			return ferr
		}
	}
	return s.fail("stream ended without completion sentinel")
}

// joinedLocked concatenates the accumulated deltas. Callers hold s.mu.
func (s *Session) joinedLocked() string {
	switch len(s.accum) {
	case 0:
		return ""
	case 1:
		return s.accum[0]
	}
	n := 0
	for _, d := range s.accum {
		n += len(d)
	}
	out := make([]byte, 0, n)
	for _, d := range s.accum {
		out = append(out, d...)
	}
	// Collapse so later appends stay cheap.
	s.accum = []string{string(out)}
	return s.accum[0]
}
