// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the single conversation with the remote model.
//
// A Manager is created once per process around a Backend and initialized
// exactly once with the tutor system instruction and a model identifier.
// The resulting Session turns each submitted message into an ordered,
// single-use sequence of text fragments.
//
// # Key Types
//
//   - Manager: guarded Uninitialized -> Initializing -> Ready|Failed lifecycle
//   - Backend: opens sessions (GeminiBackend, OllamaBackend)
//   - Session: Stream(ctx, text) iter.Seq2[string, error]
//   - InitError, StreamError: typed failures for the shells to surface
//
// # Usage
//
//	mgr := session.NewManager(session.NewGeminiBackend(session.GeminiConfig{
//	    APIKey: key,
//	}, logger), logger)
//	sess, err := mgr.Initialize(ctx, instruction, "gemini-2.5-flash")
//	if err != nil {
//	    return err // *session.InitError
//	}
//	for fragment, err := range sess.Stream(ctx, "Teach me loops") {
//	    if err != nil {
//	        return err // *session.StreamError
//	    }
//	    fmt.Print(fragment)
//	}
package session
