// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the transcript of a CodeAI conversation.
//
// # Key Types
//
//   - Role: message author, user or model
//   - Message: one transcript entry with ID, role, text and creation time
//   - Transcript: ordered, observable message store; only the last entry may
//     be rewritten, and only when it belongs to the model
//   - StateError: returned when a mutation would break the transcript shape
//
// # Usage
//
//	t := model.NewTranscript()
//	unsubscribe := t.Subscribe(func(c model.Change) { redraw() })
//	defer unsubscribe()
//
//	t.Append(model.RoleUser, "Teach me Python")
//	t.Append(model.RoleModel, "")
//	_ = t.MutateLast("Step 1")
//	_ = t.MutateLast("Step 1: install Python")
//
//	for msg := range t.UserHistory() {
//	    fmt.Println(msg.Text)
//	}
package model
