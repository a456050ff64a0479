// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/codeai-tui/internal/markdown"
)

// =============================================================================
// CLIPBOARD UTILITIES
// =============================================================================

// copyToClipboard copies the given text to the system clipboard.
func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// hiddenNote describes the blocks still folded in a reply, or "".
func hiddenNote(f markdown.Folded) string {
	switch {
	case f.Hints > 0 && f.Answers > 0:
		return fmt.Sprintf("%s and %s hidden (C-t / C-a)", plural(f.Hints, "hint"), plural(f.Answers, "answer"))
	case f.Hints > 0:
		return plural(f.Hints, "hint") + " hidden (C-t)"
	case f.Answers > 0:
		return plural(f.Answers, "answer") + " hidden (C-a)"
	}
	return ""
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// clampInt bounds v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
