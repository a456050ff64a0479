// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/codeai-tui/internal/model"
)

const quizReply = "**Question:** What is `len(\"ab\")`?\n\n<details class=\"answer-details\">\n<summary>Show Answer</summary>\n\n2\n\n</details>"

func newConversation(t *testing.T) *Conversation {
	t.Helper()
	tr := model.NewTranscript()
	tr.Append(model.RoleUser, "Quiz me on *Python* <script>alert(1)</script>\n```")
	tr.Append(model.RoleModel, quizReply)
	tr.Append(model.RoleUser, "next")
	tr.Append(model.RoleModel, "") // still streaming

	conv := FromTranscript(tr, "CodeAI", "gemini-2.5-flash")
	conv.Exported = time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	return conv
}

func TestFromTranscript_SkipsPendingReply(t *testing.T) {
	conv := newConversation(t)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, model.RoleUser, conv.Messages[2].Role)
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"markdown", ".md"},
		{"MD", ".md"},
		{"json", ".json"},
		{"html", ".html"},
	}
	for _, tt := range tests {
		e, err := ForFormat(tt.format, nil)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.ext, e.FileExtension())
	}

	_, err := ForFormat("pdf", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ForPath("notes", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	e, err := ForPath("notes.HTML", nil)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", e.MimeType())
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(newConversation(t))
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: CodeAI\nmodel: gemini-2.5-flash\nmessages: 3\n"), md)
	assert.Contains(t, md, "# CodeAI\n")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "### CodeAI")
	// User text is fenced with a fence longer than the one it contains.
	assert.Contains(t, md, "````text\nQuiz me on *Python* <script>alert(1)</script>\n```\n````")
	// Replies keep their collapsible blocks.
	assert.Contains(t, md, "<details class=\"answer-details\">")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(newConversation(t))
	require.NoError(t, err)
	md := string(out)
	assert.True(t, strings.HasPrefix(md, "# CodeAI\n"))
	assert.NotContains(t, md, "<sub>")
	assert.NotContains(t, md, "Exported on")
}

func TestJSONExporter(t *testing.T) {
	conv := newConversation(t)
	out, err := NewJSONExporter(nil).Export(conv)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "CodeAI", doc.Title)
	assert.Equal(t, "gemini-2.5-flash", doc.Model)
	require.Len(t, doc.Messages, 3)
	assert.Equal(t, conv.Messages[1].ID, doc.Messages[1].ID)
	assert.Equal(t, quizReply, doc.Messages[1].Text)
}

func TestHTMLExporter_Sanitizes(t *testing.T) {
	conv := newConversation(t)
	conv.Messages[1].Text = quizReply + "\n\n<img src=x onerror=alert(1)>\n\n<script>alert(2)</script>"

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "&lt;script&gt;alert(1)&lt;/script&gt;", "user text must be escaped")
	assert.Contains(t, page, "<strong>Question:</strong>")
	assert.Contains(t, page, "<details class=\"answer-details\">")
	assert.NotContains(t, page, "onerror")
	assert.NotContains(t, page, "<script>")
}

func TestExporters_RejectEmpty(t *testing.T) {
	empty := FromTranscript(model.NewTranscript(), "CodeAI", "")
	for _, format := range Formats() {
		e, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = e.Export(empty)
		assert.True(t, errors.Is(err, ErrEmpty), format)
	}
}

func TestWriteFile(t *testing.T) {
	conv := newConversation(t)
	e := NewMarkdownExporter(nil)
	path := filepath.Join(t.TempDir(), "notes", DefaultFilename(conv, e))

	require.NoError(t, WriteFile(conv, e, path))
	assert.Equal(t, "codeai_20250102_150405.md", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# CodeAI")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 80))), 50)
}
