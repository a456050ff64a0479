// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"
)

// =============================================================================
// DETAILS FOLDING
// =============================================================================

// Reveal selects which collapsible blocks are shown in full.
type Reveal struct {
	Hints   bool
	Answers bool
}

// Folded counts the blocks left hidden by FoldDetails.
type Folded struct {
	Hints   int
	Answers int
}

// Any reports whether anything was hidden.
func (f Folded) Any() bool {
	return f.Hints > 0 || f.Answers > 0
}

var (
	detailsOpenRe  = regexp.MustCompile(`(?i)<details(\s[^>]*)?>`)
	classAttrRe    = regexp.MustCompile(`(?i)class\s*=\s*["']([^"']*)["']`)
	summaryRe      = regexp.MustCompile(`(?is)^\s*<summary>(.*?)</summary>`)
	detailsCloseRe = regexp.MustCompile(`(?i)</details\s*>`)
)

// FoldDetails rewrites HTML <details> blocks into terminal-friendly
// Markdown. Hidden blocks keep only their summary line. A block that is
// still open (mid-stream) is folded to the end of the text so an answer
// never flashes on screen before the closing tag arrives. Tags inside
// fenced code blocks are sample code and are left alone.
//
// Blocks whose class mentions "hint" are hints; every other block is
// treated as an answer.
func FoldDetails(md string, reveal Reveal) (string, Folded) {
	var (
		out    strings.Builder
		folded Folded
		code   = fencedBlocks(md)
		pos    = 0
	)

	for {
		loc := findOutsideCode(detailsOpenRe, md, pos, code)
		if loc == nil {
			out.WriteString(md[pos:])
			break
		}
		out.WriteString(md[pos:loc[0]])

		var attrs string
		if loc[2] >= 0 {
			attrs = md[loc[2]:loc[3]]
		}
		hint := isHint(attrs)

		var body string
		closed := false
		if c := findOutsideCode(detailsCloseRe, md, loc[1], code); c != nil {
			body = md[loc[1]:c[0]]
			pos = c[1]
			closed = true
		} else {
			body = md[loc[1]:]
			pos = len(md)
		}

		summary := "Details"
		if m := summaryRe.FindStringSubmatchIndex(body); m != nil {
			summary = strings.TrimSpace(body[m[2]:m[3]])
			body = body[m[1]:]
		}

		shown := (hint && reveal.Hints) || (!hint && reveal.Answers)
		if shown && closed {
			out.WriteString("**" + summary + "**\n\n")
			out.WriteString(strings.TrimSpace(body))
			out.WriteString("\n")
			continue
		}

		out.WriteString("**" + summary + "** *(hidden)*\n")
		if hint {
			folded.Hints++
		} else {
			folded.Answers++
		}
	}

	return out.String(), folded
}

// StablePrefix returns the longest prefix of a streaming reply whose folded
// form will not change as more text arrives. It stops before an unclosed
// <details> block, before a trailing, partially received <details tag and
// before an unfinished last line that may turn out to be a code fence.
func StablePrefix(md string) string {
	md = md[:partialFenceStart(md)]
	code := fencedBlocks(md)

	stable := 0
	for {
		loc := findOutsideCode(detailsOpenRe, md, stable, code)
		if loc == nil {
			break
		}
		c := findOutsideCode(detailsCloseRe, md, loc[1], code)
		if c == nil {
			return md[:loc[0]]
		}
		stable = c[1]
	}

	if i := strings.LastIndexByte(md, '<'); i >= stable {
		if _, inCode := codeEnd(code, i); !inCode {
			tail := strings.ToLower(md[i:])
			const open = "<details"
			if !strings.Contains(tail, ">") && (strings.HasPrefix(open, tail) || strings.HasPrefix(tail, open)) {
				return md[:i]
			}
		}
	}
	return md
}

// =============================================================================
// FENCED CODE
// =============================================================================

// fencedBlocks returns the byte ranges of ``` and ~~~ fenced code blocks.
// A block that is never closed runs to the end of the text.
func fencedBlocks(md string) [][2]int {
	var (
		blocks [][2]int
		start  = -1
		fence  string
	)
	for pos := 0; pos < len(md); {
		next := len(md)
		if nl := strings.IndexByte(md[pos:], '\n'); nl >= 0 {
			next = pos + nl + 1
		}
		line := md[pos:next]

		if start < 0 {
			if marker := fenceMarker(line); marker != "" {
				start, fence = pos, marker
			}
		} else if closesFence(line, fence) {
			blocks = append(blocks, [2]int{start, next})
			start = -1
		}
		pos = next
	}
	if start >= 0 {
		blocks = append(blocks, [2]int{start, len(md)})
	}
	return blocks
}

// fenceMarker returns the backtick or tilde run opening a fence, or "".
func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || trimmed == "" {
		return ""
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return ""
	}
	// A backtick fence's info string may not contain backticks.
	if c == '`' && strings.IndexByte(trimmed[n:], '`') >= 0 {
		return ""
	}
	return trimmed[:n]
}

func closesFence(line, fence string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	run := strings.TrimRight(trimmed, " \t\r\n")
	return len(run) >= len(fence) && strings.Trim(run, fence[:1]) == ""
}

// partialFenceStart returns the offset of an unterminated last line that
// may still become a fence line, or len(md).
func partialFenceStart(md string) int {
	start := strings.LastIndexByte(md, '\n') + 1
	line := strings.TrimLeft(md[start:], " ")
	if line != "" && (line[0] == '`' || line[0] == '~') {
		return start
	}
	return len(md)
}

// findOutsideCode finds the first match of re at or after from that does
// not start inside a code block. Indices are absolute.
func findOutsideCode(re *regexp.Regexp, md string, from int, code [][2]int) []int {
	for from <= len(md) {
		loc := re.FindStringSubmatchIndex(md[from:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += from
			}
		}
		end, inCode := codeEnd(code, loc[0])
		if !inCode {
			return loc
		}
		from = end
	}
	return nil
}

func codeEnd(code [][2]int, pos int) (int, bool) {
	for _, b := range code {
		if pos >= b[0] && pos < b[1] {
			return b[1], true
		}
	}
	return 0, false
}

func isHint(attrs string) bool {
	m := classAttrRe.FindStringSubmatch(attrs)
	return m != nil && strings.Contains(strings.ToLower(m[1]), "hint")
}
