// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/novachat/internal/api"
	"github.com/jeranaias/novachat/internal/model"
)

// ErrBusy is returned when a dispatch is attempted while another session is
// still streaming.
var ErrBusy = errors.New("a response is already streaming")

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the single optional active streaming session. Dispatching
// while a session streams is rejected; cancelling and re-dispatching
// supersedes the old session, whose late events are dropped by generation
// check.
//
// The Manager also keeps the dispatched Turn in sync with the wire: deltas
// accumulate into the turn, tool events append and resolve invocations, and
// the terminal event finalizes or fails the turn.
type Manager struct {
	mu         sync.Mutex
	opener     api.StreamOpener
	active     *Session
	generation uint64
	log        *logrus.Entry

	// OnFinished, if set, receives the stats of every session that reaches
	// a terminal state while still current. Runs on the session goroutine.
	OnFinished func(Stats)
}

// NewManager creates a manager dispatching through the given opener.
func NewManager(opener api.StreamOpener) *Manager {
	return &Manager{
		opener: opener,
		log:    logrus.WithField("component", "session-manager"),
	}
}

// Busy reports whether a session is currently streaming.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil && !m.active.State().Terminal()
}

// Active returns the current session, terminal or not, or nil before the
// first dispatch.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Cancel aborts the active session, if any. Idempotent. The cancelled
// turn keeps whatever it accumulated as its response; that settlement runs
// on the session goroutine, so wait on the session's Done channel before
// reading the turn.
func (m *Manager) Cancel() {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.Cancel()
}

// Dispatch starts streaming a response for the given turn. The turn enters
// the streaming state immediately; the session runs on its own goroutine
// and the observer's callbacks fire as events arrive. Returns ErrBusy if a
// session is already streaming.
//
// Events from a session that has since been superseded by a newer dispatch
// never touch the turn or the observer.
func (m *Manager) Dispatch(turn *model.Turn, req api.StreamRequest, obs Observer) (*Session, error) {
	m.mu.Lock()
	if m.active != nil && !m.active.State().Terminal() {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.generation++
	gen := m.generation

	s := New(m.opener, req, m.wrap(gen, turn, obs))
	m.active = s
	m.mu.Unlock()

	// Settlement runs on the session goroutine, the only goroutine that
	// mutates the turn once streaming starts.
	s.onSettled = func(st State) {
		if !m.current(gen) {
			return
		}
		if st == StateCancelled {
			turn.MarkCancelled()
		}
		if m.OnFinished != nil {
			m.OnFinished(s.Stats())
		}
	}

	turn.BeginStreaming()
	m.log.WithFields(logrus.Fields{
		"turn":  turn.ID,
		"model": req.Model,
		"tools": req.UseTools,
	}).Debug("dispatching stream")

	go s.Run()
	return s, nil
}

// current reports whether gen is still the newest dispatched generation.
func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

// wrap builds the internal observer that keeps the turn in sync and relays
// to the caller's observer, gated on the session generation.
func (m *Manager) wrap(gen uint64, turn *model.Turn, obs Observer) Observer {
	return Observer{
		OnChunk: func(delta string) {
			if !m.current(gen) {
				return
			}
			turn.AppendDelta(delta)
			if obs.OnChunk != nil {
				obs.OnChunk(delta)
			}
		},
		OnToolStart: func(tool, input string) {
			if !m.current(gen) {
				return
			}
			turn.StartTool(tool, input)
			if obs.OnToolStart != nil {
				obs.OnToolStart(tool, input)
			}
		},
		OnToolEnd: func(output string) {
			if !m.current(gen) {
				return
			}
			if !turn.ResolveTool(output) {
				m.log.Debug("tool_end with no running invocation, dropped")
			}
			if obs.OnToolEnd != nil {
				obs.OnToolEnd(output)
			}
		},
		OnComplete: func(full string) {
			if !m.current(gen) {
				return
			}
			turn.FinalizeResponse()
			if obs.OnComplete != nil {
				obs.OnComplete(full)
			}
		},
		OnError: func(msg string) {
			if !m.current(gen) {
				return
			}
			turn.FailRunningTools()
			turn.MarkFailed()
			if obs.OnError != nil {
				obs.OnError(msg)
			}
		},
	}
}
