// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current conversation to a file or HTTP
// response.
//
// # Supported Formats
//
//   - Markdown: study notes; replies verbatim, user text fenced literally
//   - JSON: machine-readable with message IDs and timestamps
//   - HTML: standalone page; replies rendered and sanitized
//
// Collapsible hint and answer blocks are exported unfolded so they stay
// collapsible in the output.
//
// # Usage
//
//	conv := export.FromTranscript(transcript, "CodeAI", sess.Model())
//	exporter, err := export.ForPath("notes.md", nil)
//	err = export.WriteFile(conv, exporter, "notes.md")
package export
