// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/codeai-tui/internal/ui/styles"
)

// =============================================================================
// TYPING INDICATOR
// =============================================================================

// TypingIndicator is shown while the model placeholder is still empty.
type TypingIndicator struct {
	spinner  spinner.Model
	message  string
	isActive bool
}

// NewTypingIndicator creates an inactive indicator.
func NewTypingIndicator(theme *styles.Theme, message string) TypingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	s.Style = theme.Spinner
	return TypingIndicator{spinner: s, message: message}
}

// Start activates the indicator and returns its first tick.
func (t *TypingIndicator) Start() tea.Cmd {
	if t.isActive {
		return nil
	}
	t.isActive = true
	return t.spinner.Tick
}

// Stop deactivates the indicator. Pending ticks are dropped by Update.
func (t *TypingIndicator) Stop() {
	t.isActive = false
}

// IsActive returns whether the indicator is running.
func (t *TypingIndicator) IsActive() bool {
	return t.isActive
}

// Update advances the animation.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	if !t.isActive {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or "" when inactive.
func (t TypingIndicator) View(theme *styles.Theme) string {
	if !t.isActive {
		return ""
	}
	return theme.Typing.Render(t.message) + t.spinner.View()
}
