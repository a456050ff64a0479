// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the CodeAI shells.
//
// # Key Functions
//
// Text:
//   - NormalizeInput: NFC-normalizes and trims submitted text
//   - IsBlank: reports whether text is empty after trimming
//   - TruncateWidth: display-width aware truncation for side panel rows
//   - FirstLine: single-line preview of multi-line text
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	text := util.NormalizeInput(raw)
//	if util.IsBlank(text) {
//	    return
//	}
//	row := util.TruncateWidth(util.FirstLine(text), 24)
package util
