// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// User-facing texts. Structured error detail goes to the log only.
const (
	InitFailedText     = "Failed to initialize CodeAI. Please check the API key."
	NotInitializedText = "Chat session is not initialized."
)

// Sentinel errors.
var (
	ErrMissingAPIKey     = errors.New("no API key configured")
	ErrAlreadyConsumed   = errors.New("fragment stream already consumed")
	ErrNotInitialized    = errors.New(NotInitializedText)
	ErrUnknownBackend    = errors.New("unknown backend")
	errInitializeAborted = errors.New("initialization aborted")
)

// =============================================================================
// INIT ERROR
// =============================================================================

// InitError reports that no session could be created: a missing or
// rejected credential, or an unreachable service. It is never retried.
type InitError struct {
	Backend string
	Model   string
	Cause   error
}

func (e *InitError) Error() string {
	msg := fmt.Sprintf("initialize %s session (model %s)", e.Backend, e.Model)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *InitError) Unwrap() error {
	return e.Cause
}

// UserMessage is the text shown in the persistent banner.
func (e *InitError) UserMessage() string {
	return InitFailedText
}

// =============================================================================
// STREAM ERROR
// =============================================================================

// StreamError reports a failure while fragments were being delivered.
// Fragments is how many had already been yielded to the caller.
type StreamError struct {
	Backend   string
	Fragments int
	Cause     error
}

func (e *StreamError) Error() string {
	msg := fmt.Sprintf("%s stream failed after %d fragment(s)", e.Backend, e.Fragments)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// IsInitError reports whether err is or wraps an *InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}

// IsStreamError reports whether err is or wraps a *StreamError.
func IsStreamError(err error) bool {
	var se *StreamError
	return errors.As(err, &se)
}
