// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the codeai
// terminal UI. Colors are lipgloss AdaptiveColors so they follow the
// terminal background unless the theme is pinned to dark or light.
package styles
