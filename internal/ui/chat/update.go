// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/turn"
	"github.com/jeranaias/codeai-tui/internal/ui/components"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		cmds = append(cmds, m.refresh())

	case SessionReadyMsg:
		if msg.Err != nil {
			m.logger.Warn("session unavailable", zap.Error(msg.Err))
		} else if msg.Model != "" {
			m.header.Model = msg.Model
		}
		cmds = append(cmds, m.applySessionState())
		m.layout()
		cmds = append(cmds, m.refresh())

	case refreshMsg:
		cmds = append(cmds, m.applySessionState())
		m.layout()
		cmds = append(cmds, m.refresh(), m.listen())

	case TurnDoneMsg:
		m.pending = false
		if msg.Err != nil {
			m.handleTurnError(msg)
		}
		cmds = append(cmds, m.applySessionState(), m.refresh())

	case CopiedMsg:
		if msg.Err != nil {
			m.logger.Warn("clipboard write failed", zap.Error(msg.Err))
			m.notice = "Copy failed: " + msg.Err.Error()
		} else {
			m.notice = fmt.Sprintf("Copied answer (%d characters)", msg.Chars)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.typing, cmd = m.typing.Update(msg)
		if m.typing.IsActive() {
			m.refresh()
		}
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleTurnError restores refused input. The user-facing text itself
// comes from the controller.
func (m *Model) handleTurnError(msg TurnDoneMsg) {
	switch {
	case errors.Is(msg.Err, turn.ErrSessionNotReady):
		if m.input.Value() == "" {
			m.input.SetValue(msg.Text)
			m.input.CursorEnd()
		}
	case errors.Is(msg.Err, turn.ErrEmptyInput), errors.Is(msg.Err, turn.ErrTurnInProgress):
	default:
		m.logger.Debug("turn failed", zap.Error(msg.Err))
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.panel.IsOpen() {
		return m.handlePanelKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.TogglePanel):
		m.panel.SetHistory(m.historyEntries())
		m.panel.Toggle()
		m.layout()
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyLastAnswer()
		return m, cmd

	case key.Matches(msg, m.keys.RevealHints):
		m.reveal.Hints = !m.reveal.Hints
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.RevealAnswers):
		m.reveal.Answers = !m.reveal.Answers
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Send):
		if m.inputLocked() {
			return m, nil
		}
		text := util.NormalizeInput(m.input.Value())
		if util.IsBlank(text) {
			m.input.Reset()
			return m, nil
		}
		return m.startTurn(text)
	}

	if m.inputLocked() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.TogglePanel), key.Matches(msg, m.keys.Close):
		m.panel.Close()
		m.layout()
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.SwitchTab):
		m.panel.NextTab()

	case key.Matches(msg, m.keys.Up):
		m.panel.MoveUp()

	case key.Matches(msg, m.keys.Down):
		m.panel.MoveDown()

	case key.Matches(msg, m.keys.Send):
		sel, ok := m.panel.Selected()
		if !ok {
			return m, nil
		}
		m.panel.Close()
		m.layout()
		return m.applySelection(sel)
	}
	return m, nil
}

// applySelection submits a curriculum topic or copies a history entry into
// the input without submitting it.
func (m Model) applySelection(sel components.PanelSelection) (tea.Model, tea.Cmd) {
	if sel.Tab == components.TabHistory {
		m.input.SetValue(sel.Text)
		m.input.CursorEnd()
		cmd := m.refresh()
		return m, cmd
	}

	prompt, err := m.curriculum.Prompt(sel.Text)
	if err != nil {
		m.logger.Warn("curriculum selection", zap.String("topic", sel.Text), zap.Error(err))
		cmd := m.refresh()
		return m, cmd
	}
	if m.inputLocked() {
		cmd := m.refresh()
		return m, cmd
	}
	return m.startTurn(prompt)
}

// startTurn clears the input and hands text to the controller.
func (m Model) startTurn(text string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	m.input.Blur()
	m.pending = true
	m.reveal = markdown.Reveal{}
	cmd := m.refresh()
	return m, tea.Batch(m.submit(text), cmd)
}

// =============================================================================
// CONTENT
// =============================================================================

// refresh rebuilds the viewport content from a transcript snapshot and
// scrolls to the newest entry.
func (m *Model) refresh() tea.Cmd {
	snap := m.controller.Transcript().Snapshot()
	busy := m.controller.Busy()
	width := m.contentWidth()

	lastModel := -1
	for i := len(snap) - 1; i >= 0; i-- {
		if snap[i].Role == model.RoleModel {
			lastModel = i
			break
		}
	}

	var parts []string
	if m.showWelcome {
		parts = append(parts, m.renderWelcome(width))
	}

	typing := false
	live := make(map[string]struct{}, len(snap))
	for i, msg := range snap {
		switch msg.Role {
		case model.RoleUser:
			parts = append(parts, components.RenderUserMessage(m.theme, msg.Text, width))
		case model.RoleModel:
			if msg.IsEmpty() && busy && i == len(snap)-1 {
				typing = true
				continue
			}
			live[msg.ID] = struct{}{}
			reveal := markdown.Reveal{}
			if i == lastModel {
				reveal = m.reveal
			}
			body, folded := m.render(msg, width, reveal)
			parts = append(parts, components.RenderModelMessage(m.theme, body, hiddenNote(folded), width))
		}
	}
	for id := range m.cache {
		if _, ok := live[id]; !ok {
			delete(m.cache, id)
		}
	}

	var cmd tea.Cmd
	if typing {
		cmd = m.typing.Start()
		parts = append(parts, m.typing.View(m.theme))
	} else {
		m.typing.Stop()
	}

	if e := m.controller.Err(); e != "" {
		parts = append(parts, components.RenderErrorLine(m.theme, e))
	}

	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	m.viewport.GotoBottom()
	return cmd
}

// render returns the cached rendering of a model reply.
func (m *Model) render(msg model.Message, width int, reveal markdown.Reveal) (string, markdown.Folded) {
	k := renderKey{text: msg.Text, width: width, reveal: reveal}
	if e, ok := m.cache[msg.ID]; ok && e.key == k {
		return e.out, e.folded
	}
	out, folded := m.renderer.Render(msg.Text, width, reveal)
	m.cache[msg.ID] = renderEntry{key: k, out: out, folded: folded}
	return out, folded
}

func (m *Model) renderWelcome(width int) string {
	if m.welcome == "" || m.welcomeWidth != width {
		body, _ := m.renderer.Render(m.curriculum.Greeting, width-m.theme.Welcome.GetHorizontalFrameSize(), markdown.Reveal{})
		m.welcome = components.RenderWelcome(m.theme, body, width)
		m.welcomeWidth = width
	}
	return m.welcome
}

// contentWidth is the wrap width for transcript entries.
func (m Model) contentWidth() int {
	w := m.viewport.Width - 2
	if w > m.wordWrap {
		w = m.wordWrap
	}
	if w < markdown.MinWidth {
		w = markdown.MinWidth
	}
	return w
}
