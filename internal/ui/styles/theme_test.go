// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestNewTheme(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("NewTheme(dark) should be dark")
	}
	light := NewTheme("light")
	if light.IsDark {
		t.Error("NewTheme(light) should not be dark")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", dark.Header},
		{"UserBubble", dark.UserBubble},
		{"ModelBubble", dark.ModelBubble},
		{"ErrorBanner", dark.ErrorBanner},
		{"Panel", dark.Panel},
		{"PanelItemSelected", dark.PanelItemSelected},
	}
	for _, s := range styles {
		if s.style.Render("test") == "" {
			t.Errorf("%s style should be initialized", s.name)
		}
	}
}

func TestGlamourStyle(t *testing.T) {
	theme := NewTheme("dark")
	if got := theme.GlamourStyle("light"); got != "light" {
		t.Errorf("GlamourStyle(light) = %q", got)
	}

	theme.ColorProfile = termenv.Ascii
	if got := theme.GlamourStyle("auto"); got != "notty" {
		t.Errorf("GlamourStyle(auto) on ascii = %q, want notty", got)
	}
	theme.ColorProfile = termenv.TrueColor
	if got := theme.GlamourStyle("auto"); got != "auto" {
		t.Errorf("GlamourStyle(auto) = %q, want auto", got)
	}
}

func TestThemeLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: got %v, want %v", tt.width, got, tt.want)
		}
	}
}
