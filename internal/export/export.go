// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// Errors returned by exporters.
var (
	ErrEmpty         = errors.New("conversation has no messages")
	ErrUnknownFormat = errors.New("unknown export format")
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is a transcript snapshot with the metadata shown in exports.
type Conversation struct {
	Title    string
	Model    string
	Messages []model.Message
	Exported time.Time
}

// FromTranscript snapshots t. A reply that has not produced text yet is
// left out.
func FromTranscript(t *model.Transcript, title, modelID string) *Conversation {
	snap := t.Snapshot()
	msgs := make([]model.Message, 0, len(snap))
	for _, m := range snap {
		if m.Role == model.RoleModel && m.IsEmpty() {
			continue
		}
		msgs = append(msgs, m)
	}
	return &Conversation{
		Title:    title,
		Model:    modelID,
		Messages: msgs,
		Exported: time.Now(),
	}
}

func (c *Conversation) validate() error {
	if c == nil || len(c.Messages) == 0 {
		return ErrEmpty
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a conversation to one output format.
type Exporter interface {
	// Export returns the encoded conversation.
	Export(conv *Conversation) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string

	// MimeType returns the Content-Type for HTTP responses.
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds a header with title, model and export time.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"markdown", "json", "html"}
}

// ForFormat returns the exporter for a format name ("markdown", "md",
// "json" or "html").
func ForFormat(format string, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	}
	return nil, fmt.Errorf("%w: %q (use one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
}

// ForPath picks the exporter from the file extension.
func ForPath(path string, opts *Options) (Exporter, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ForFormat(ext, opts)
}

// WriteFile exports conv to path atomically.
func WriteFile(conv *Conversation, exporter Exporter, path string) error {
	content, err := exporter.Export(conv)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// DefaultFilename is a download name for conv, e.g.
// "codeai_20250102_150405.md".
func DefaultFilename(conv *Conversation, exporter Exporter) string {
	return fmt.Sprintf("%s_%s%s",
		sanitizeFilename(strings.ToLower(conv.Title)),
		conv.Exported.Format("20060102_150405"),
		exporter.FileExtension())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// formatShortTimestamp formats a timestamp in short form.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
