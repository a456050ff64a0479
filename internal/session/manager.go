// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Session is a live conversation with the remote model. Conversational
// memory lives behind the session; callers only submit the new message.
type Session interface {
	// Stream submits text and returns the reply as ordered, non-empty
	// fragments. The sequence can be ranged over once. A failure ends it
	// with a *StreamError; fragments already yielded stay valid.
	Stream(ctx context.Context, text string) iter.Seq2[string, error]

	// Model returns the model identifier the session was opened with.
	Model() string
}

// Backend opens sessions against a specific provider.
type Backend interface {
	Name() string
	Open(ctx context.Context, systemInstruction, modelID string) (Session, error)
}

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle state of a Manager.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the one session of the process. Initialize runs the backend
// at most once; concurrent and later callers observe the same outcome.
type Manager struct {
	backend Backend
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	session Session
	err     error
	done    chan struct{}

	listeners []func(State)
}

// NewManager creates a manager around backend. A nil logger is replaced
// with a no-op logger.
func NewManager(backend Backend, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		logger:  logger.Named("session"),
		done:    make(chan struct{}),
	}
}

// Initialize opens the session. The first call does the work; calls made
// while it runs wait for it (or for their own ctx), and calls made after it
// settles return the stored session or *InitError without contacting the
// backend again.
func (m *Manager) Initialize(ctx context.Context, systemInstruction, modelID string) (Session, error) {
	m.mu.Lock()
	switch m.state {
	case StateReady, StateFailed:
		defer m.mu.Unlock()
		return m.session, m.err
	case StateInitializing:
		m.mu.Unlock()
		select {
		case <-m.done:
			return m.Session()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.state = StateInitializing
	m.mu.Unlock()
	m.emit(StateInitializing)

	m.logger.Info("initializing session",
		zap.String("backend", m.backend.Name()),
		zap.String("model", modelID))

	sess, err := m.backend.Open(ctx, systemInstruction, modelID)
	if err == nil && sess == nil {
		err = errInitializeAborted
	}
	if err != nil && !IsInitError(err) {
		err = &InitError{Backend: m.backend.Name(), Model: modelID, Cause: err}
	}

	m.mu.Lock()
	if err != nil {
		m.state, m.err = StateFailed, err
		m.logger.Error("session initialization failed", zap.Error(err))
	} else {
		m.state, m.session = StateReady, sess
		m.logger.Info("session ready", zap.String("model", sess.Model()))
	}
	final := m.state
	close(m.done)
	m.mu.Unlock()
	m.emit(final)

	return m.Session()
}

// Session returns the session once ready. Before initialization has
// settled it returns ErrNotInitialized.
func (m *Manager) Session() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady:
		return m.session, nil
	case StateFailed:
		return nil, m.err
	default:
		return nil, ErrNotInitialized
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the initialization error, if initialization failed.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once initialization has settled either way.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// BackendName returns the name of the configured backend.
func (m *Manager) BackendName() string {
	return m.backend.Name()
}

// OnStateChange registers fn to be called on every lifecycle transition.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) emit(s State) {
	m.mu.Lock()
	ls := make([]func(State), len(m.listeners))
	copy(ls, m.listeners)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(s)
	}
}

// =============================================================================
// SEQUENCE HELPERS
// =============================================================================

// singleUse wraps seq so that a second range over it yields
// ErrAlreadyConsumed instead of resubmitting the message.
func singleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", ErrAlreadyConsumed)
			return
		}
		seq(yield)
	}
}
