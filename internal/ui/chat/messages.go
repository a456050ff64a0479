// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionReadyMsg reports that session initialization has settled.
type SessionReadyMsg struct {
	Model string
	Err   error
}

// =============================================================================
// TURN MESSAGES
// =============================================================================

// refreshMsg is delivered after the transcript, the controller or the
// session manager changed.
type refreshMsg struct{}

// TurnDoneMsg reports the outcome of one submission.
type TurnDoneMsg struct {
	// Text is the submitted text, restored to the input when the turn
	// was refused before anything was appended.
	Text string
	Err  error
}

// =============================================================================
// CLIPBOARD MESSAGES
// =============================================================================

// CopiedMsg reports the outcome of a copy to the clipboard.
type CopiedMsg struct {
	Chars int
	Err   error
}
