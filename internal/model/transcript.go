// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"iter"
	"sync"
)

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

// ChangeKind identifies the transcript operation that produced a Change.
type ChangeKind int

const (
	ChangeAppend ChangeKind = iota
	ChangeMutate
	ChangeRemove
)

// String returns the string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAppend:
		return "append"
	case ChangeMutate:
		return "mutate"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change describes one transcript mutation. Index is the position of the
// affected message; for ChangeRemove it is the position it occupied.
type Change struct {
	Kind    ChangeKind
	Index   int
	Message Message
	Len     int
}

// Observer is notified after every transcript change.
type Observer func(Change)

type subscription struct {
	id int
	fn Observer
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered message list of one conversation.
//
// It is append-only except for the last entry: a model message may be
// rewritten in place with MutateLast while its reply streams in, and removed
// with RemoveLast when the reply fails. Observers run synchronously on the
// goroutine that made the change, after the lock is released, so they may
// read the transcript but must not block for long.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message

	obsMu     sync.Mutex
	observers []subscription
	nextObsID int
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		messages: make([]Message, 0, 16),
	}
}

// Append adds a new message at the end and returns it.
func (t *Transcript) Append(role Role, text string) Message {
	msg := NewMessage(role, text)

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	idx := len(t.messages) - 1
	t.mu.Unlock()

	t.notify(Change{Kind: ChangeAppend, Index: idx, Message: msg, Len: idx + 1})
	return msg
}

// MutateLast replaces the text of the last message. It fails with a
// *StateError if the transcript is empty or the last message is not from
// the model. Callers pass the cumulative text, so repeating a call with the
// same value leaves the transcript unchanged.
func (t *Transcript) MutateLast(text string) error {
	t.mu.Lock()
	n := len(t.messages)
	if n == 0 {
		t.mu.Unlock()
		return &StateError{Op: "mutateLast", Reason: "transcript is empty"}
	}
	last := &t.messages[n-1]
	if last.Role != RoleModel {
		t.mu.Unlock()
		return &StateError{Op: "mutateLast", Reason: "last message has role " + last.Role.String()}
	}
	last.Text = text
	msg := *last
	t.mu.Unlock()

	t.notify(Change{Kind: ChangeMutate, Index: n - 1, Message: msg, Len: n})
	return nil
}

// RemoveLast drops the last message and returns it.
func (t *Transcript) RemoveLast() (Message, error) {
	t.mu.Lock()
	n := len(t.messages)
	if n == 0 {
		t.mu.Unlock()
		return Message{}, &StateError{Op: "removeLast", Reason: "transcript is empty"}
	}
	msg := t.messages[n-1]
	t.messages[n-1] = Message{}
	t.messages = t.messages[:n-1]
	t.mu.Unlock()

	t.notify(Change{Kind: ChangeRemove, Index: n - 1, Message: msg, Len: n - 1})
	return msg, nil
}

// =============================================================================
// READ PROJECTIONS
// =============================================================================

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastFrom returns the most recent message with the given role.
func (t *Transcript) LastFrom(role Role) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// Snapshot returns a copy of all messages in insertion order.
func (t *Transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// UserHistory yields the user's messages, most recent first. The sequence
// reads a snapshot taken when iteration starts.
func (t *Transcript) UserHistory() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		snap := t.Snapshot()
		for i := len(snap) - 1; i >= 0; i-- {
			if snap[i].Role != RoleUser {
				continue
			}
			if !yield(snap[i]) {
				return
			}
		}
	}
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (t *Transcript) Subscribe(fn Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	id := t.nextObsID
	t.nextObsID++
	t.observers = append(t.observers, subscription{id: id, fn: fn})
	t.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.obsMu.Lock()
			defer t.obsMu.Unlock()
			for i, s := range t.observers {
				if s.id == id {
					t.observers = append(t.observers[:i], t.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (t *Transcript) notify(c Change) {
	t.obsMu.Lock()
	subs := make([]subscription, len(t.observers))
	copy(subs, t.observers)
	t.obsMu.Unlock()

	for _, s := range subs {
		s.fn(c)
	}
}
