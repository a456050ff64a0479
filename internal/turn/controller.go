// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn drives one conversational exchange at a time: it appends the
// user's message and a model placeholder to the transcript, folds streamed
// fragments into the placeholder, and rolls the placeholder back when the
// stream fails.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// StreamFailedText is the only text a user sees when a turn fails.
const StreamFailedText = "Sorry, something went wrong. Please try again."

// Outcomes of Submit that leave the transcript untouched.
var (
	ErrEmptyInput      = errors.New("empty input")
	ErrTurnInProgress  = errors.New("a turn is already in progress")
	ErrSessionNotReady = errors.New("session not ready")
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in a turn.
type State int

const (
	// Idle accepts input.
	Idle State = iota
	// Submitting has appended the user message and placeholder and waits
	// for the first fragment.
	Submitting
	// Streaming is folding fragments into the placeholder.
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SessionSource hands out the ready session. *session.Manager implements it.
type SessionSource interface {
	Session() (session.Session, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller serializes turns against one transcript.
type Controller struct {
	transcript *model.Transcript
	sessions   SessionSource
	logger     *zap.Logger

	mu        sync.Mutex
	state     State
	userErr   string
	observers map[int]func(State)
	nextObs   int
}

// New creates a controller in the Idle state.
func New(transcript *model.Transcript, sessions SessionSource, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		transcript: transcript,
		sessions:   sessions,
		logger:     logger.Named("turn"),
		observers:  make(map[int]func(State)),
	}
}

// Transcript returns the store the controller writes to.
func (c *Controller) Transcript() *model.Transcript {
	return c.transcript
}

// Submit runs one turn and blocks until the stream settles. Shells call it
// from a goroutine and follow progress through transcript observers.
//
// Blank input, a busy controller and a session that is not ready are no-ops
// on the transcript. A stream failure removes the placeholder, keeps the
// user's message and returns the *session.StreamError.
func (c *Controller) Submit(ctx context.Context, text string) error {
	sess, err := c.begin(text)
	if err != nil {
		return err
	}
	return c.stream(ctx, sess, text)
}

// Start accepts a submission exactly like Submit but streams the reply on
// a new goroutine. When Start returns nil the user message and placeholder
// are already in the transcript. The channel yields the outcome of the
// stream and is then closed.
func (c *Controller) Start(ctx context.Context, text string) (<-chan error, error) {
	sess, err := c.begin(text)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- c.stream(ctx, sess, text)
	}()
	return done, nil
}

// begin claims the controller for one turn and appends the user message
// and the model placeholder.
func (c *Controller) begin(text string) (session.Session, error) {
	if util.IsBlank(text) {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	sess, err := c.sessions.Session()
	if err != nil {
		c.userErr = session.NotInitializedText
		c.mu.Unlock()
		c.logger.Warn("submission before session ready", zap.Error(err))
		c.emit(Idle)
		return nil, fmt.Errorf("%w: %w", ErrSessionNotReady, err)
	}
	c.state = Submitting
	c.userErr = ""
	c.mu.Unlock()

	c.transcript.Append(model.RoleUser, text)
	c.transcript.Append(model.RoleModel, "")
	c.emit(Submitting)
	return sess, nil
}

// stream folds the reply into the placeholder and returns the controller
// to Idle.
func (c *Controller) stream(ctx context.Context, sess session.Session, text string) error {
	start := time.Now()
	var (
		reply     strings.Builder
		fragments int
		streamErr error
	)
	for fragment, err := range sess.Stream(ctx, text) {
		if err != nil {
			streamErr = err
			break
		}
		reply.WriteString(fragment)
		fragments++
		if fragments == 1 {
			c.setState(Streaming)
		}
		if err := c.transcript.MutateLast(reply.String()); err != nil {
			// Only a broken transcript invariant gets here.
			c.logger.Error("transcript rejected fragment", zap.Int("fragments", fragments), zap.Error(err))
			c.setState(Idle)
			return err
		}
	}

	if streamErr != nil {
		c.rollback(streamErr)
		return streamErr
	}

	c.logger.Debug("turn complete",
		zap.Int("fragments", fragments),
		zap.Int("chars", reply.Len()),
		zap.Duration("elapsed", time.Since(start)))
	c.setState(Idle)
	return nil
}

func (c *Controller) rollback(cause error) {
	c.logger.Warn("turn failed", zap.Error(cause))
	if last, ok := c.transcript.Last(); !ok || last.Role != model.RoleModel {
		c.logger.Error("no placeholder to roll back", zap.Int("len", c.transcript.Len()))
	} else if _, err := c.transcript.RemoveLast(); err != nil {
		c.logger.Error("rollback failed", zap.Error(err))
	}

	c.mu.Lock()
	c.userErr = StreamFailedText
	c.state = Idle
	c.mu.Unlock()
	c.emit(Idle)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether input is locked.
func (c *Controller) Busy() bool {
	return c.State() != Idle
}

// Err returns the user-facing error of the last turn, or "". It is cleared
// when the next submission is accepted.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userErr
}

// ClearErr dismisses the user-facing error.
func (c *Controller) ClearErr() {
	c.mu.Lock()
	c.userErr = ""
	state := c.state
	c.mu.Unlock()
	c.emit(state)
}

// Subscribe registers fn for state and error changes. fn runs on the
// submitting goroutine and must not call Submit.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(s)
}

func (c *Controller) emit(s State) {
	c.mu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
