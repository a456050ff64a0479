// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/codeai-tui/internal/ui/styles"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// SessionStatus is the session indicator shown at the right of the header.
type SessionStatus int

const (
	StatusInitializing SessionStatus = iota
	StatusReady
	StatusFailed
)

// String returns the display string for the status.
func (s SessionStatus) String() string {
	switch s {
	case StatusInitializing:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "offline"
	default:
		return "unknown"
	}
}

// Header is the title bar.
type Header struct {
	Title    string
	Subtitle string
	Model    string
	Status   SessionStatus
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme, title, subtitle string) *Header {
	return &Header{Title: title, Subtitle: subtitle, Width: 80, theme: theme}
}

// View renders the title and subtitle on the left and the model and session
// status on the right. The subtitle is dropped first when space runs out.
func (h *Header) View() string {
	t := h.theme
	inner := h.Width - t.Header.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	statusStyle := t.StatusPending
	switch h.Status {
	case StatusReady:
		statusStyle = t.StatusReady
	case StatusFailed:
		statusStyle = t.StatusFailed
	}
	right := statusStyle.Render("● " + h.Status.String())
	if h.Model != "" {
		right = t.HeaderSubtitle.Render(h.Model) + "  " + right
	}

	left := t.HeaderTitle.Render(h.Title)
	if h.Subtitle != "" {
		withSub := left + "  " + t.HeaderSubtitle.Render(h.Subtitle)
		if lipgloss.Width(withSub)+lipgloss.Width(right)+1 <= inner {
			left = withSub
		}
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = inner - lipgloss.Width(left)
		if gap < 0 {
			left = util.TruncateWidth(h.Title, inner)
			gap = 0
		}
	}

	return t.Header.Width(h.Width).Render(left + util.PadWidth("", gap) + right)
}
