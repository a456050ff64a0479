// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/export"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/util"
)

const promptText = "you> "

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the subset of *liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// scanReader reads lines from a pipe or file. It keeps no history.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	return &scanReader{sc: bufio.NewScanner(r)}
}

func (r *scanReader) Prompt(string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) AppendHistory(string) {}

func (r *scanReader) Close() error { return nil }

// newLineReader uses liner when reading from a terminal. Line history lives
// in memory for the length of the session.
func (e *Env) newLineReader() lineReader {
	if e.Stdin != os.Stdin || !IsTTY() {
		return newScanReader(e.Stdin)
	}
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(e.complete)
	return line
}

var chatCommands = []string{"/help", "/topics", "/learn ", "/history", "/hints", "/answers", "/export ", "/quit"}

// complete offers slash commands and, after /learn, topic names.
func (e *Env) complete(line string) []string {
	var out []string
	if rest, ok := strings.CutPrefix(line, "/learn "); ok {
		for _, name := range e.Curriculum.Names() {
			if strings.HasPrefix(strings.ToLower(name), strings.ToLower(rest)) {
				out = append(out, "/learn "+name)
			}
		}
		return out
	}
	for _, c := range chatCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive REPL until /quit, EOF or ctx is done.
func HandleChat(ctx context.Context, env *Env) error {
	if err := env.InitSession(ctx); err != nil {
		return err
	}
	in := env.newLineReader()
	defer in.Close()
	return newChat(env, in).run(ctx)
}

type chat struct {
	env *Env
	in  lineReader

	reveal    markdown.Reveal
	lastReply string
}

func newChat(env *Env, in lineReader) *chat {
	return &chat{env: env, in: in}
}

func (c *chat) run(ctx context.Context) error {
	c.env.logger().Info("chat started", zap.String("model", c.modelName()))
	c.printWelcome()

	for ctx.Err() == nil {
		input, err := c.in.Prompt(promptText)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(c.env.Stdout)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		c.in.AppendHistory(input)

		if strings.HasPrefix(trimmed, "/") {
			if quit := c.command(ctx, trimmed); quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			return nil
		}
		c.submit(ctx, input)
	}
	return nil
}

func (c *chat) submit(ctx context.Context, text string) {
	c.reveal = markdown.Reveal{}
	reply, err := c.env.runTurn(ctx, text, c.reveal)
	if err == nil {
		c.lastReply = reply
	}
}

func (c *chat) modelName() string {
	if sess, err := c.env.Manager.Session(); err == nil {
		return sess.Model()
	}
	return ""
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command handles a slash command and reports whether the REPL should exit.
func (c *chat) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/exit", "/q":
		return true
	case "/help", "/?":
		c.printHelp()
	case "/topics":
		c.printTopics()
	case "/learn":
		c.learn(ctx, arg)
	case "/history":
		c.printHistory()
	case "/hints":
		c.revealLast(markdown.Reveal{Hints: true, Answers: c.reveal.Answers})
	case "/answers":
		c.revealLast(markdown.Reveal{Hints: c.reveal.Hints, Answers: true})
	case "/export":
		c.exportTo(arg)
	default:
		c.errorf("Unknown command: %s (try /help)", name)
	}
	return false
}

// learn submits the prompt for a topic given by name or list number.
func (c *chat) learn(ctx context.Context, arg string) {
	if arg == "" {
		c.errorf("Usage: /learn <topic>")
		return
	}
	names := c.env.Curriculum.Names()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(names) {
		arg = names[n-1]
	}
	prompt, err := c.env.Curriculum.Prompt(arg)
	if err != nil {
		c.errorf("Unknown topic %q. Topics: %s", arg, strings.Join(names, ", "))
		return
	}
	fmt.Fprintln(c.env.Stdout, UserLabelStyle.Render(model.RoleUser.DisplayName()))
	fmt.Fprintln(c.env.Stdout, prompt)
	c.submit(ctx, prompt)
}

// exportTo writes the conversation to path in the format its extension names.
func (c *chat) exportTo(path string) {
	if path == "" {
		c.errorf("Usage: /export <file.md|file.json|file.html>")
		return
	}
	exporter, err := export.ForPath(path, nil)
	if err != nil {
		c.errorf("%v", err)
		return
	}
	conv := export.FromTranscript(c.env.Controller.Transcript(), c.env.Curriculum.Title, c.modelName())
	if err := export.WriteFile(conv, exporter, path); err != nil {
		if errors.Is(err, export.ErrEmpty) {
			c.errorf("Nothing to export yet.")
			return
		}
		c.errorf("Export failed: %v", err)
		return
	}
	fmt.Fprintf(c.env.Stdout, "%s %d messages to %s\n", SuccessStyle.Render("Exported"), len(conv.Messages), path)
}

func (c *chat) revealLast(reveal markdown.Reveal) {
	if c.lastReply == "" {
		fmt.Fprintln(c.env.Stdout, SubtleStyle.Render("Nothing to reveal yet."))
		return
	}
	c.reveal = reveal
	fmt.Fprintln(c.env.Stdout, ModelLabelStyle.Render(model.RoleModel.DisplayName()))
	c.env.printReply(c.lastReply, c.reveal)
}

func (c *chat) errorf(format string, args ...any) {
	fmt.Fprintln(c.env.Stderr, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

// =============================================================================
// OUTPUT
// =============================================================================

func (c *chat) printWelcome() {
	cur := c.env.Curriculum
	out := c.env.Stdout

	fmt.Fprintln(out, TitleStyle.Render(cur.Title)+"  "+SubtleStyle.Render(cur.Subtitle))
	if c.env.Config == nil || c.env.Config.UI.ShowWelcome {
		fmt.Fprintln(out)
		c.env.printReply(cur.Greeting, markdown.Reveal{})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtleStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(out)
}

func (c *chat) printHelp() {
	out := c.env.Stdout
	fmt.Fprintln(out, TitleStyle.Render("Commands"))
	rows := [][2]string{
		{"/topics", "List curriculum topics"},
		{"/learn <topic>", "Start a topic by name or number"},
		{"/history", "Show your messages, newest first"},
		{"/hints", "Reveal hints in the last reply"},
		{"/answers", "Reveal answers in the last reply"},
		{"/export <file>", "Save the chat as .md, .json or .html"},
		{"/quit", "Exit"},
	}
	for _, r := range rows {
		fmt.Fprintln(out, "  "+LabelStyle.Render(r[0])+ValueStyle.Render(r[1]))
	}
}

func (c *chat) printTopics() {
	out := c.env.Stdout
	fmt.Fprintln(out, TitleStyle.Render("Topics"))
	for i, t := range c.env.Curriculum.Topics {
		line := fmt.Sprintf("  %d. %s", i+1, t.Name)
		if t.Summary != "" {
			line = fmt.Sprintf("  %d. %s", i+1, LabelStyle.Width(12).Render(t.Name)+SubtleStyle.Render(t.Summary))
		}
		fmt.Fprintln(out, line)
	}
}

func (c *chat) printHistory() {
	out := c.env.Stdout
	width := max(c.env.termWidth()-6, 10)
	n := 0
	for msg := range c.env.Controller.Transcript().UserHistory() {
		n++
		fmt.Fprintf(out, "  %d. %s\n", n, util.TruncateWidth(util.FirstLine(msg.Text), width))
	}
	if n == 0 {
		fmt.Fprintln(out, SubtleStyle.Render("No messages yet."))
	}
}
