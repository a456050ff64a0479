// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quiz = `**Question:** What does len("abc") return?

<details class="hint-details">
<summary>💡 Need a Hint?</summary>

Count the characters.

</details>

<details class="answer-details">
<summary>👁️ Show Answer</summary>

It returns ` + "`3`" + `.

</details>
`

// =============================================================================
// FOLDING
// =============================================================================

func TestFoldDetails(t *testing.T) {
	tests := []struct {
		name     string
		reveal   Reveal
		contains []string
		hidden   []string
		folded   Folded
	}{
		{
			name:     "all hidden",
			contains: []string{"**💡 Need a Hint?** *(hidden)*", "**👁️ Show Answer** *(hidden)*", "**Question:**"},
			hidden:   []string{"Count the characters", "It returns", "<details", "</details>"},
			folded:   Folded{Hints: 1, Answers: 1},
		},
		{
			name:     "hints revealed",
			reveal:   Reveal{Hints: true},
			contains: []string{"Count the characters", "**👁️ Show Answer** *(hidden)*"},
			hidden:   []string{"It returns"},
			folded:   Folded{Answers: 1},
		},
		{
			name:     "everything revealed",
			reveal:   Reveal{Hints: true, Answers: true},
			contains: []string{"Count the characters", "It returns `3`."},
			hidden:   []string{"*(hidden)*", "<summary>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, folded := FoldDetails(quiz, tt.reveal)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
			assert.Equal(t, tt.folded, folded)
			assert.Equal(t, tt.folded.Hints+tt.folded.Answers > 0, folded.Any())
		})
	}
}

func TestFoldDetails_UnclosedBlockStaysHidden(t *testing.T) {
	partial := "Intro\n\n<details class=\"answer-details\">\n<summary>Show Answer</summary>\n\nThe answer is"

	out, folded := FoldDetails(partial, Reveal{Answers: true})
	assert.NotContains(t, out, "The answer is")
	assert.Contains(t, out, "**Show Answer** *(hidden)*")
	assert.Equal(t, 1, folded.Answers)
}

func TestFoldDetails_Defaults(t *testing.T) {
	out, folded := FoldDetails("<DETAILS>secret</DETAILS> after", Reveal{})
	assert.Equal(t, "**Details** *(hidden)*\n after", out)
	assert.Equal(t, Folded{Answers: 1}, folded)

	plain := "no blocks here"
	out, folded = FoldDetails(plain, Reveal{})
	assert.Equal(t, plain, out)
	assert.False(t, folded.Any())
}

func TestFoldDetails_SkipsFencedCode(t *testing.T) {
	lesson := "Use the tag like this:\n\n```html\n<details>\n<summary>More</summary>\nHidden text\n</details>\n```\n\nDone."

	out, folded := FoldDetails(lesson, Reveal{})
	assert.Equal(t, lesson, out)
	assert.False(t, folded.Any())

	// A shorter run does not close the fence, and an unclosed fence runs on.
	tilde := "~~~~\n<details>x</details>\n~~~\nstill code <details>y\n"
	out, folded = FoldDetails(tilde, Reveal{})
	assert.Equal(t, tilde, out)
	assert.False(t, folded.Any())
}

func TestFoldDetails_CodeInsideAnswer(t *testing.T) {
	reply := "<details class=\"answer-details\">\n<summary>Show Answer</summary>\n\n```html\n</details>\n```\n\n</details>\nAfter."

	out, folded := FoldDetails(reply, Reveal{})
	assert.Equal(t, "**Show Answer** *(hidden)*\n\nAfter.", out)
	assert.Equal(t, Folded{Answers: 1}, folded)

	out, _ = FoldDetails(reply, Reveal{Answers: true})
	assert.Contains(t, out, "```html\n</details>\n```")
	assert.Contains(t, out, "After.")
}

func TestStablePrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello, world", "Hello, world"},
		{"comparison is not a tag", "if a < b", "if a < b"},
		{"partial open tag", "Intro <det", "Intro "},
		{"open tag without bracket", "Intro <details class=\"hint", "Intro "},
		{"unclosed block", "Intro <details><summary>S</summary>body", "Intro "},
		{"closed block", "A <details>x</details> B", "A <details>x</details> B"},
		{"second block open", "A <details>x</details> B <details>y", "A <details>x</details> B "},
		{"tag in fenced code", "```html\n<details>\n", "```html\n<details>\n"},
		{"partial fence line", "Text\n``", "Text\n"},
		{"unfinished fence line", "Text\n```htm", "Text\n"},
		{"indented fence line", "Text\n  ~~", "Text\n"},
		{"partial tag in code", "```\n<det", "```\n<det"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StablePrefix(tt.in))
		})
	}
}

func TestStablePrefix_FoldingOnlyGrows(t *testing.T) {
	for _, reveal := range []Reveal{{}, {Hints: true}, {Hints: true, Answers: true}} {
		printed := ""
		for i := 0; i <= len(quiz); i++ {
			out, _ := FoldDetails(StablePrefix(quiz[:i]), reveal)
			require.True(t, strings.HasPrefix(out, printed), "prefix %d shrank the folded text", i)
			printed = out
		}
		final, _ := FoldDetails(quiz, reveal)
		assert.Equal(t, final, printed)
	}
}

func TestStablePrefix_FencedSampleNeverFolds(t *testing.T) {
	reply := "Example:\n\n```html\n<details>\n<summary>S</summary>\n</details>\n```\n\n" + quiz
	printed := ""
	for i := 0; i <= len(reply); i++ {
		out, _ := FoldDetails(StablePrefix(reply[:i]), Reveal{})
		require.True(t, strings.HasPrefix(out, printed), "prefix %d shrank the folded text", i)
		printed = out
	}
	final, folded := FoldDetails(reply, Reveal{})
	assert.Equal(t, final, printed)
	assert.Contains(t, final, "```html\n<details>\n<summary>S</summary>\n</details>\n```")
	assert.Equal(t, Folded{Hints: 1, Answers: 1}, folded)
}

// =============================================================================
// TERMINAL
// =============================================================================

func TestTerminal_Render(t *testing.T) {
	term := NewTerminal("notty")

	out, folded := term.Render("# Loops\n\nUse **for**.\n\n"+quiz, 60, Reveal{})
	assert.Contains(t, out, "Loops")
	assert.Contains(t, out, "for")
	assert.NotContains(t, out, "Count the characters")
	assert.Equal(t, Folded{Hints: 1, Answers: 1}, folded)
	assert.False(t, strings.HasPrefix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n"))

	out, _ = term.Render("   ", 60, Reveal{})
	assert.Empty(t, out)
}

func TestTerminal_CachesPerWidth(t *testing.T) {
	term := NewTerminal("notty")
	term.Render("a", 60, Reveal{})
	term.Render("b", 60, Reveal{})
	term.Render("c", 5, Reveal{})

	assert.Len(t, term.cache, 2)
	assert.Contains(t, term.cache, MinWidth)
}

// =============================================================================
// HTML
// =============================================================================

func TestHTML_Render(t *testing.T) {
	h := NewHTML()

	out, err := h.Render("# Title\n\n```python\nprint('hi')\n```\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<pre><code")
	assert.Contains(t, out, "print(")
}

func TestHTML_KeepsDetails(t *testing.T) {
	out, err := NewHTML().Render(quiz)
	require.NoError(t, err)
	assert.Contains(t, out, `<details class="hint-details">`)
	assert.Contains(t, out, `<details class="answer-details">`)
	assert.Contains(t, out, "<summary>")
	assert.Contains(t, out, "Count the characters.")
}

func TestHTML_Sanitizes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		banned []string
	}{
		{"script block", "<script>alert(1)</script>\n\nhello", []string{"<script", "alert(1)"}},
		{"event handler", `<img src="x.png" onerror="alert(1)">`, []string{"onerror"}},
		{"javascript link", "[click](javascript:alert(1))", []string{"javascript:"}},
		{"iframe", `<iframe src="https://evil.example"></iframe>`, []string{"<iframe"}},
		{"details handler", `<details class="x" ontoggle="alert(1)"><summary>s</summary></details>`, []string{"ontoggle"}},
		{"style", `<p style="position:fixed">x</p>`, []string{"style="}},
	}
	h := NewHTML()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Render(tt.input)
			require.NoError(t, err)
			for _, b := range tt.banned {
				assert.NotContains(t, out, b)
			}
		})
	}
}

func TestEscapeUserText(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;<br>**not bold**", EscapeUserText("<b>hi</b>\n**not bold**"))
	assert.Equal(t, "a &amp; b", EscapeUserText("a & b"))
}
