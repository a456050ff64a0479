// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/ui/components"
)

const (
	inputHeight  = 3
	footerHeight = 1
	minViewport  = 3
	minPanel     = 16
)

// =============================================================================
// LAYOUT
// =============================================================================

// layout distributes the terminal size between the components.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	m.header.Width = m.width
	m.help.Width = m.width

	height := m.height - lipgloss.Height(m.header.View()) - inputHeight - footerHeight
	if banner := m.banner(); banner != "" {
		height -= lipgloss.Height(banner)
	}
	if height < minViewport {
		height = minViewport
	}

	width := m.width
	if m.panel.IsOpen() {
		pw := clampInt(m.panelWidth, minPanel, m.width/2)
		m.panel.SetSize(pw, height)
		width -= pw
	}

	m.viewport.Width = width
	m.viewport.Height = height

	frame := m.theme.InputContainer.GetHorizontalFrameSize()
	m.input.Width = m.width - frame - lipgloss.Width(m.input.Prompt) - 1
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Starting CodeAI..."
	}

	sections := []string{m.header.View()}

	body := m.viewport.View()
	if m.panel.IsOpen() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.panel.View(), body)
	}
	sections = append(sections, body)

	if banner := m.banner(); banner != "" {
		sections = append(sections, banner)
	}

	input := m.theme.InputContainer.
		Width(m.width - m.theme.InputContainer.GetHorizontalBorderSize()).
		Render(m.input.View())
	sections = append(sections, input, m.footer())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// banner is the persistent initialization failure, or "".
func (m Model) banner() string {
	if m.manager.State() != session.StateFailed {
		return ""
	}
	text := session.InitFailedText
	var ie *session.InitError
	if errors.As(m.manager.Err(), &ie) {
		text = ie.UserMessage()
	}
	return components.RenderErrorBanner(m.theme, text, m.width)
}

func (m Model) footer() string {
	switch {
	case m.notice != "":
		return m.theme.Notice.Render(m.notice)
	case m.panel.IsOpen():
		return m.help.ShortHelpView(m.keys.panelKeys())
	default:
		return m.help.View(m.keys)
	}
}
