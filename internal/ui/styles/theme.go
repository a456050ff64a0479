// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusReady    lipgloss.Style
	StatusPending  lipgloss.Style
	StatusFailed   lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	Welcome     lipgloss.Style
	UserLabel   lipgloss.Style
	ModelLabel  lipgloss.Style
	UserBubble  lipgloss.Style
	ModelBubble lipgloss.Style
	HiddenNote  lipgloss.Style
	Typing      lipgloss.Style
	Spinner     lipgloss.Style

	// ==========================================================================
	// INPUT AREA
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// ERRORS
	// ==========================================================================

	// ErrorBanner is the persistent initialization failure.
	ErrorBanner lipgloss.Style
	// ErrorLine is the transient turn failure.
	ErrorLine lipgloss.Style
	Notice    lipgloss.Style

	// ==========================================================================
	// SIDE PANEL
	// ==========================================================================

	Panel             lipgloss.Style
	PanelTab          lipgloss.Style
	PanelTabActive    lipgloss.Style
	PanelItem         lipgloss.Style
	PanelItemSelected lipgloss.Style
	PanelEmpty        lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto"; "auto" asks
// the terminal for its background.
func NewTheme(mode string) *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}

	switch mode {
	case "dark":
		t.IsDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		t.IsDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		t.IsDark = termenv.HasDarkBackground()
	}

	t.initStyles()
	return t
}

// GlamourStyle is the glamour style name matching the theme mode.
func (t *Theme) GlamourStyle(mode string) string {
	switch mode {
	case "dark", "light":
		return mode
	}
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	return "auto"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.StatusReady = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusPending = lipgloss.NewStyle().Foreground(Amber)
	t.StatusFailed = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	// Transcript
	t.Welcome = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(0, 1).
		MarginBottom(1)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ModelLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.ModelBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(ModelBubbleBorder)

	t.HiddenNote = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.Typing = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Errors
	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseDeep).
		Bold(true).
		Padding(0, 1)

	t.ErrorLine = lipgloss.NewStyle().
		Foreground(Rose)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald)

	// Side panel
	t.Panel = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PanelTab = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.PanelTabActive = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		Underline(true).
		Padding(0, 1)

	t.PanelItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.PanelItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.PanelEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, side panel overlays the transcript
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
