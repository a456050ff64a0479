// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sessiontest provides a scripted session.Session for tests of the
// turn controller and the shells.
package sessiontest

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/jeranaias/codeai-tui/internal/session"
)

// ErrNoReply is the stream failure cause once the script is exhausted.
var ErrNoReply = errors.New("no scripted reply left")

// Reply scripts one model reply.
type Reply struct {
	// Fragments are yielded in order.
	Fragments []string

	// Err, when set, ends the stream with a *session.StreamError after the
	// fragments have been yielded.
	Err error

	// Hold, when set, is waited on after the first fragment (or before the
	// failure if there are none) so tests can observe a turn mid-stream.
	Hold <-chan struct{}
}

// Session replays scripted replies in order and records prompts.
type Session struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	model   string
}

// NewSession creates a session that answers with replies in order.
func NewSession(replies ...Reply) *Session {
	return &Session{replies: replies, model: "scripted-model"}
}

// Add appends more scripted replies.
func (s *Session) Add(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

// Prompts returns the texts submitted so far.
func (s *Session) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Model implements session.Session.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Stream implements session.Session.
func (s *Session) Stream(ctx context.Context, text string) iter.Seq2[string, error] {
	s.mu.Lock()
	s.prompts = append(s.prompts, text)
	var reply Reply
	ok := len(s.replies) > 0
	if ok {
		reply, s.replies = s.replies[0], s.replies[1:]
	}
	s.mu.Unlock()

	return func(yield func(string, error) bool) {
		if !ok {
			yield("", &session.StreamError{Backend: "scripted", Cause: ErrNoReply})
			return
		}

		held := false
		wait := func() bool {
			if held || reply.Hold == nil {
				return true
			}
			held = true
			select {
			case <-reply.Hold:
				return true
			case <-ctx.Done():
				yield("", &session.StreamError{Backend: "scripted", Cause: ctx.Err()})
				return false
			}
		}

		for i, f := range reply.Fragments {
			if !yield(f, nil) {
				return
			}
			if i == 0 && !wait() {
				return
			}
		}
		if reply.Err != nil {
			if !wait() {
				return
			}
			yield("", &session.StreamError{Backend: "scripted", Fragments: len(reply.Fragments), Cause: reply.Err})
		}
	}
}

// Backend opens the scripted session, or fails with Err.
type Backend struct {
	Session *Session
	Err     error
}

// Name implements session.Backend.
func (b *Backend) Name() string { return "scripted" }

// Open implements session.Backend.
func (b *Backend) Open(ctx context.Context, systemInstruction, modelID string) (session.Session, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	if modelID != "" {
		b.Session.mu.Lock()
		b.Session.model = modelID
		b.Session.mu.Unlock()
	}
	return b.Session, nil
}

// ReadyManager returns a manager already initialized with s.
func ReadyManager(s *Session) *session.Manager {
	m := session.NewManager(&Backend{Session: s}, nil)
	if _, err := m.Initialize(context.Background(), "", ""); err != nil {
		panic(err)
	}
	return m
}
