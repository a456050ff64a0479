// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders model output: ANSI text for the terminal shells
// via glamour, and sanitized HTML for the web shell via goldmark and
// bluemonday. User text is never passed through either renderer.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MinWidth is the narrowest wrap width the renderer accepts.
const MinWidth = 20

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// Terminal renders Markdown for a terminal. Renderers are built lazily and
// cached per wrap width because the viewport width changes on resize.
type Terminal struct {
	style string

	mu    sync.Mutex
	cache map[int]*glamour.TermRenderer
}

// NewTerminal creates a renderer. style is "auto", "dark", "light" or
// "notty"; anything else means "auto".
func NewTerminal(style string) *Terminal {
	return &Terminal{style: style, cache: make(map[int]*glamour.TermRenderer)}
}

// Render folds collapsible blocks per reveal and renders md wrapped to
// width. On renderer failure the folded Markdown is returned as is.
func (t *Terminal) Render(md string, width int, reveal Reveal) (string, Folded) {
	folded, info := FoldDetails(md, reveal)
	if strings.TrimSpace(folded) == "" {
		return "", info
	}

	r, err := t.renderer(width)
	if err != nil {
		return folded, info
	}

	t.mu.Lock()
	out, err := r.Render(folded)
	t.mu.Unlock()
	if err != nil {
		return folded, info
	}
	return strings.Trim(out, "\n"), info
}

func (t *Terminal) renderer(width int) (*glamour.TermRenderer, error) {
	if width < MinWidth {
		width = MinWidth
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.cache[width]; ok {
		return r, nil
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch t.style {
	case "dark", "light", "notty":
		opts = append(opts, glamour.WithStylePath(t.style))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	t.cache[width] = r
	return r, nil
}
