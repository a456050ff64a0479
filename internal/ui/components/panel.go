// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/codeai-tui/internal/ui/styles"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// =============================================================================
// SIDE PANEL
// =============================================================================

// PanelTab identifies a side panel tab.
type PanelTab int

const (
	TabCurriculum PanelTab = iota
	TabHistory
)

// String returns the tab label.
func (t PanelTab) String() string {
	if t == TabHistory {
		return "History"
	}
	return "Curriculum"
}

// PanelSelection is what the user picked.
type PanelSelection struct {
	Tab PanelTab
	// Text is the topic name or the full history entry.
	Text string
}

// SidePanel lists curriculum topics and the derived history. It never
// modifies either list.
type SidePanel struct {
	open    bool
	tab     PanelTab
	topics  []string
	history []string
	cursor  [2]int
	offset  [2]int

	width  int
	height int
	theme  *styles.Theme
}

// NewSidePanel creates a closed panel on the Curriculum tab.
func NewSidePanel(theme *styles.Theme, topics []string) *SidePanel {
	return &SidePanel{theme: theme, topics: topics, width: 28, height: 10}
}

// IsOpen reports whether the panel is shown.
func (p *SidePanel) IsOpen() bool { return p.open }

// Toggle opens or closes the panel.
func (p *SidePanel) Toggle() { p.open = !p.open }

// Close hides the panel.
func (p *SidePanel) Close() { p.open = false }

// Tab returns the active tab.
func (p *SidePanel) Tab() PanelTab { return p.tab }

// NextTab switches between Curriculum and History.
func (p *SidePanel) NextTab() {
	if p.tab == TabCurriculum {
		p.tab = TabHistory
	} else {
		p.tab = TabCurriculum
	}
}

// SetHistory replaces the history entries, newest first.
func (p *SidePanel) SetHistory(entries []string) {
	p.history = entries
	p.clamp(TabHistory)
}

// SetSize sets the outer panel dimensions.
func (p *SidePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.clamp(TabCurriculum)
	p.clamp(TabHistory)
}

// Width returns the outer panel width.
func (p *SidePanel) Width() int { return p.width }

func (p *SidePanel) items(tab PanelTab) []string {
	if tab == TabHistory {
		return p.history
	}
	return p.topics
}

// MoveUp moves the cursor up on the active tab.
func (p *SidePanel) MoveUp() {
	if p.cursor[p.tab] > 0 {
		p.cursor[p.tab]--
	}
	p.clamp(p.tab)
}

// MoveDown moves the cursor down on the active tab.
func (p *SidePanel) MoveDown() {
	if p.cursor[p.tab] < len(p.items(p.tab))-1 {
		p.cursor[p.tab]++
	}
	p.clamp(p.tab)
}

// Selected returns the item under the cursor.
func (p *SidePanel) Selected() (PanelSelection, bool) {
	items := p.items(p.tab)
	if len(items) == 0 {
		return PanelSelection{}, false
	}
	return PanelSelection{Tab: p.tab, Text: items[p.cursor[p.tab]]}, true
}

// visibleRows is the number of list rows below the tab bar.
func (p *SidePanel) visibleRows() int {
	rows := p.height - 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

// clamp keeps the cursor inside the list and scrolls it into view.
func (p *SidePanel) clamp(tab PanelTab) {
	n := len(p.items(tab))
	c := &p.cursor[tab]
	if *c >= n {
		*c = n - 1
	}
	if *c < 0 {
		*c = 0
	}

	rows := p.visibleRows()
	off := &p.offset[tab]
	if *c < *off {
		*off = *c
	}
	if *c >= *off+rows {
		*off = *c - rows + 1
	}
	if *off < 0 {
		*off = 0
	}
}

// View renders the panel at its configured size.
func (p *SidePanel) View() string {
	t := p.theme
	inner := p.width - t.Panel.GetHorizontalFrameSize()
	if inner < 4 {
		inner = 4
	}

	var tabs []string
	for _, tab := range []PanelTab{TabCurriculum, TabHistory} {
		style := t.PanelTab
		if tab == p.tab {
			style = t.PanelTabActive
		}
		tabs = append(tabs, style.Render(tab.String()))
	}

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...), ""}

	items := p.items(p.tab)
	if len(items) == 0 {
		empty := "No topics."
		if p.tab == TabHistory {
			empty = "No messages yet."
		}
		lines = append(lines, t.PanelEmpty.Render(empty))
	}

	rows := p.visibleRows()
	start := p.offset[p.tab]
	for i := start; i < len(items) && i < start+rows; i++ {
		label := util.TruncateWidth(util.FirstLine(items[i]), inner-2)
		if i == p.cursor[p.tab] {
			lines = append(lines, t.PanelItemSelected.Render(util.PadWidth("> "+label, inner)))
		} else {
			lines = append(lines, t.PanelItem.Render("  "+label))
		}
	}

	return t.Panel.
		Width(p.width - t.Panel.GetHorizontalBorderSize()).
		Height(p.height).
		Render(strings.Join(lines, "\n"))
}
