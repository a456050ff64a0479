// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea model of the terminal chat shell.
//
// The model never talks to a backend directly. Submissions go through the
// turn controller in a command, and the transcript, controller and session
// manager signal changes over a single coalescing channel. On each signal
// the model re-reads a snapshot and redraws, so a burst of fragments costs
// one render.
//
// Layout, top to bottom:
//   - header with title, subtitle, model and session status
//   - optional side panel (Curriculum / History) beside the transcript
//   - transcript viewport with the welcome banner, messages, typing
//     indicator and the last turn error
//   - initialization failure banner, when the session could not be opened
//   - input line and key help
package chat
