// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
)

// =============================================================================
// STREAMING OUTPUT
// =============================================================================

// replyPrinter writes a model reply to w while it streams. Text is folded
// per reveal before printing, and only the stable prefix of the reply is
// folded, so a hidden hint or answer never reaches the terminal.
type replyPrinter struct {
	w      io.Writer
	reveal markdown.Reveal

	index   int // transcript index of the reply, -1 until appended
	text    string
	printed string
}

func newReplyPrinter(w io.Writer, reveal markdown.Reveal) *replyPrinter {
	return &replyPrinter{w: w, reveal: reveal, index: -1}
}

// observe is a transcript observer. It runs on the goroutine calling
// Submit, so it needs no locking.
func (p *replyPrinter) observe(c model.Change) {
	switch c.Kind {
	case model.ChangeAppend:
		if c.Message.Role == model.RoleModel {
			p.index = c.Index
			fmt.Fprintln(p.w, ModelLabelStyle.Render(model.RoleModel.DisplayName()))
		}
	case model.ChangeMutate:
		if c.Index == p.index {
			p.text = c.Message.Text
			p.write(markdown.StablePrefix(p.text))
		}
	}
}

func (p *replyPrinter) write(md string) {
	folded, _ := markdown.FoldDetails(md, p.reveal)
	if len(folded) <= len(p.printed) || !strings.HasPrefix(folded, p.printed) {
		return
	}
	_, _ = io.WriteString(p.w, folded[len(p.printed):])
	p.printed = folded
}

// rows is the number of terminal rows taken by the label and the streamed
// text.
func (p *replyPrinter) rows(width int) int {
	if p.index < 0 {
		return 0
	}
	return 1 + visualLines(p.printed, width)
}

// runTurn submits text and prints the reply as it streams. On success it
// returns the reply Markdown. On failure the user-facing error has been
// printed on Stderr.
func (e *Env) runTurn(ctx context.Context, text string, reveal markdown.Reveal) (string, error) {
	p := newReplyPrinter(e.Stdout, reveal)
	unsubscribe := e.Controller.Transcript().Subscribe(p.observe)
	err := e.Controller.Submit(ctx, text)
	unsubscribe()

	if err != nil {
		e.logger().Debug("turn failed", zap.Error(err))
		if e.Interactive {
			clearLines(e.Stdout, p.rows(e.termWidth()))
		} else if p.index >= 0 {
			fmt.Fprintln(e.Stdout)
		}
		if msg := e.Controller.Err(); msg != "" {
			fmt.Fprintln(e.Stderr, ErrorStyle.Render(msg))
		}
		return "", err
	}

	p.write(p.text)
	if e.Interactive {
		clearLines(e.Stdout, visualLines(p.printed, e.termWidth()))
		e.printReply(p.text, reveal)
		return p.text, nil
	}
	fmt.Fprintln(e.Stdout)
	_, folded := markdown.FoldDetails(p.text, reveal)
	e.printHiddenNote(folded)
	return p.text, nil
}

// printReply prints a complete reply, rendered with glamour when
// interactive and as folded Markdown otherwise.
func (e *Env) printReply(md string, reveal markdown.Reveal) {
	var (
		out    string
		folded markdown.Folded
	)
	if e.Interactive && e.Renderer != nil {
		out, folded = e.Renderer.Render(md, e.wrapWidth(), reveal)
	} else {
		out, folded = markdown.FoldDetails(md, reveal)
		out = strings.TrimRight(out, "\n")
	}
	fmt.Fprintln(e.Stdout, out)
	e.printHiddenNote(folded)
}

func (e *Env) printHiddenNote(f markdown.Folded) {
	if note := hiddenNote(f); note != "" {
		fmt.Fprintln(e.Stdout, WarningStyle.Render(note))
	}
}

// hiddenNote tells the user which blocks are folded and how to show them.
func hiddenNote(f markdown.Folded) string {
	var parts []string
	if f.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d %s hidden (/hints)", f.Hints, plural(f.Hints, "hint", "hints")))
	}
	if f.Answers > 0 {
		parts = append(parts, fmt.Sprintf("%d %s hidden (/answers)", f.Answers, plural(f.Answers, "answer", "answers")))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
