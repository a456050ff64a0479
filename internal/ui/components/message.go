// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT ENTRIES
// =============================================================================

// RenderUserMessage renders a user message exactly as typed, wrapped to
// width.
func RenderUserMessage(theme *styles.Theme, text string, width int) string {
	label := theme.UserLabel.Render(model.RoleUser.DisplayName())
	bubble := theme.UserBubble
	body := bubble.Width(bodyWidth(bubble.GetHorizontalFrameSize(), width)).Render(text)
	return label + "\n" + body
}

// RenderModelMessage renders an already formatted model reply. note is an
// optional line under the body, such as the hidden hint notice.
func RenderModelMessage(theme *styles.Theme, body, note string, width int) string {
	label := theme.ModelLabel.Render(model.RoleModel.DisplayName())
	var b strings.Builder
	b.WriteString(body)
	if note != "" {
		if body != "" {
			b.WriteString("\n")
		}
		b.WriteString(theme.HiddenNote.Render(note))
	}
	return label + "\n" + theme.ModelBubble.Render(b.String())
}

func bodyWidth(frame, width int) int {
	w := width - frame
	if w < 10 {
		w = 10
	}
	return w
}

// =============================================================================
// BANNERS
// =============================================================================

// RenderWelcome frames the rendered greeting shown above the transcript.
func RenderWelcome(theme *styles.Theme, greeting string, width int) string {
	return theme.Welcome.Width(bodyWidth(theme.Welcome.GetHorizontalFrameSize(), width)).Render(greeting)
}

// RenderErrorBanner renders the persistent initialization failure.
func RenderErrorBanner(theme *styles.Theme, text string, width int) string {
	return theme.ErrorBanner.Width(width).Render("✗ " + text)
}

// RenderErrorLine renders a transient turn failure.
func RenderErrorLine(theme *styles.Theme, text string) string {
	return theme.ErrorLine.Render("! " + text)
}
