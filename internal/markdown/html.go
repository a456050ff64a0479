// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

// =============================================================================
// HTML RENDERER
// =============================================================================

// HTML renders model Markdown to HTML that is safe to inject into a page.
// Raw HTML is let through goldmark because the tutor replies rely on
// <details>, then everything passes the sanitizer policy.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML creates an HTML renderer.
func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldhtml.WithUnsafe()),
		),
		policy: Policy(),
	}
}

// Policy is the sanitizer applied to rendered model output: the UGC policy
// plus collapsible blocks.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("details", "summary")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("details")
	return p
}

// Render converts md and sanitizes the result.
func (h *HTML) Render(md string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return h.policy.Sanitize(buf.String()), nil
}

// EscapeUserText renders user input literally: HTML-escaped, line breaks
// preserved.
func EscapeUserText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
