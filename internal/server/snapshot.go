// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
)

// ============================================================================
// SNAPSHOT TYPES
// ============================================================================

// MessageView is one transcript entry as the page renders it. HTML is
// sanitized Markdown for model messages and escaped text for user
// messages.
type MessageView struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
	Pending bool   `json:"pending,omitempty"`
}

// Snapshot is the payload of GET /api/transcript and of every WebSocket
// push.
type Snapshot struct {
	Messages     []MessageView `json:"messages"`
	Busy         bool          `json:"busy"`
	Error        string        `json:"error,omitempty"`
	Session      string        `json:"session"`
	SessionError string        `json:"session_error,omitempty"`
}

type renderedMessage struct {
	text string
	html string
}

// ============================================================================
// SNAPSHOT BUILDING
// ============================================================================

// snapshot captures the transcript and controller state. Model replies are
// rendered once per distinct text.
func (s *Server) snapshot() Snapshot {
	msgs := s.controller.Transcript().Snapshot()
	busy := s.controller.Busy()

	snap := Snapshot{
		Messages: make([]MessageView, 0, len(msgs)),
		Busy:     busy,
		Error:    s.controller.Err(),
		Session:  s.manager.State().String(),
	}
	if s.manager.Err() != nil {
		snap.SessionError = sessionErrorText(s.manager.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]struct{}, len(msgs))
	for i, m := range msgs {
		view := MessageView{ID: m.ID, Role: m.Role.String(), Text: m.Text}
		switch m.Role {
		case model.RoleUser:
			view.HTML = markdown.EscapeUserText(m.Text)
		case model.RoleModel:
			view.Pending = busy && m.IsEmpty() && i == len(msgs)-1
			view.HTML = s.renderLocked(m)
			live[m.ID] = struct{}{}
		}
		snap.Messages = append(snap.Messages, view)
	}
	for id := range s.rendered {
		if _, ok := live[id]; !ok {
			delete(s.rendered, id)
		}
	}
	return snap
}

func (s *Server) renderLocked(m model.Message) string {
	if r, ok := s.rendered[m.ID]; ok && r.text == m.Text {
		return r.html
	}
	out, err := s.html.Render(m.Text)
	if err != nil {
		s.logger.Warn("markdown render failed", zap.String("id", m.ID), zap.Error(err))
		out = markdown.EscapeUserText(m.Text)
	}
	s.rendered[m.ID] = renderedMessage{text: m.Text, html: out}
	return out
}
