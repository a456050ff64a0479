// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/session/sessiontest"
	"github.com/jeranaias/codeai-tui/internal/turn"
	"github.com/jeranaias/codeai-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) write(s string) error {
	c.text = s
	return c.err
}

func newTestModelWith(t *testing.T, mgr *session.Manager, clip *fakeClipboard) Model {
	t.Helper()
	ctrl := turn.New(model.NewTranscript(), mgr, nil)
	m := New(Options{
		Manager:    mgr,
		Controller: ctrl,
		Theme:      styles.NewTheme("dark"),
		Renderer:   markdown.NewTerminal("notty"),
		Clipboard:  clip.write,
	})
	t.Cleanup(m.Close)
	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func newTestModel(t *testing.T, replies ...sessiontest.Reply) (Model, *sessiontest.Session) {
	t.Helper()
	s := sessiontest.NewSession(replies...)
	return newTestModelWith(t, sessiontest.ReadyManager(s), &fakeClipboard{}), s
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// run executes cmd and every command of nested batches, returning the
// messages they produced.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func turnDone(t *testing.T, cmd tea.Cmd) TurnDoneMsg {
	t.Helper()
	for _, msg := range run(cmd) {
		if done, ok := msg.(TurnDoneMsg); ok {
			return done
		}
	}
	t.Fatal("command did not produce a TurnDoneMsg")
	return TurnDoneMsg{}
}

// send types text and presses enter, then completes the turn.
func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := update(m, keyPress(tea.KeyEnter))
	m, _ = update(m, turnDone(t, cmd))
	return m
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestViewBeforeWindowSize(t *testing.T) {
	s := sessiontest.NewSession()
	mgr := sessiontest.ReadyManager(s)
	m := New(Options{Manager: mgr, Controller: turn.New(model.NewTranscript(), mgr, nil)})
	defer m.Close()

	if got := m.View(); got != "Starting CodeAI..." {
		t.Errorf("View() = %q", got)
	}
	if m.input.Placeholder != Placeholder {
		t.Errorf("placeholder = %q", m.input.Placeholder)
	}
}

func TestSendStreamsReply(t *testing.T) {
	m, s := newTestModel(t, sessiontest.Reply{Fragments: []string{"Hello", ", ", "world"}})

	m.input.SetValue("  explain loops  ")
	m, cmd := update(m, keyPress(tea.KeyEnter))
	if !m.pending {
		t.Error("model should be pending after send")
	}
	if m.input.Value() != "" {
		t.Errorf("input should be cleared, got %q", m.input.Value())
	}

	m, _ = update(m, turnDone(t, cmd))
	if m.pending {
		t.Error("pending should clear when the turn completes")
	}
	if got := s.Prompts(); len(got) != 1 || got[0] != "explain loops" {
		t.Errorf("prompts = %q", got)
	}
	if n := m.controller.Transcript().Len(); n != 2 {
		t.Errorf("transcript length = %d, want 2", n)
	}

	view := m.View()
	for _, want := range []string{"explain loops", "Hello, world", "CodeAI"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSendBlankIsNoOp(t *testing.T) {
	m, s := newTestModel(t)

	m.input.SetValue("   \n ")
	m, cmd := update(m, keyPress(tea.KeyEnter))
	if cmd != nil {
		t.Error("blank input should not start a turn")
	}
	if m.pending || len(s.Prompts()) != 0 || m.controller.Transcript().Len() != 0 {
		t.Error("blank input must not change anything")
	}
}

func TestSendIgnoredWhilePending(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending = true
	m.input.SetValue("second")

	_, cmd := update(m, keyPress(tea.KeyEnter))
	if cmd != nil {
		t.Error("send while a turn is pending should be ignored")
	}
}

func TestStreamFailureShowsErrorLine(t *testing.T) {
	m, _ := newTestModel(t, sessiontest.Reply{Fragments: []string{"Par"}, Err: errors.New("boom")})

	m = send(t, m, "explain loops")

	if n := m.controller.Transcript().Len(); n != 1 {
		t.Errorf("transcript length = %d, want 1", n)
	}
	view := m.View()
	if !strings.Contains(view, turn.StreamFailedText) {
		t.Error("view should show the stream failure")
	}
	if strings.Contains(view, "Par") {
		t.Error("partial reply should be rolled back")
	}
	if !m.input.Focused() {
		t.Error("input should be unlocked after a failed turn")
	}
}

func TestSendBeforeReadyRestoresInput(t *testing.T) {
	mgr := session.NewManager(&sessiontest.Backend{Session: sessiontest.NewSession()}, nil)
	m := newTestModelWith(t, mgr, &fakeClipboard{})

	m.input.SetValue("hello")
	m, cmd := update(m, keyPress(tea.KeyEnter))
	done := turnDone(t, cmd)
	if !errors.Is(done.Err, turn.ErrSessionNotReady) {
		t.Fatalf("err = %v, want ErrSessionNotReady", done.Err)
	}
	m, _ = update(m, done)

	if m.input.Value() != "hello" {
		t.Errorf("input should be restored, got %q", m.input.Value())
	}
	if m.controller.Transcript().Len() != 0 {
		t.Error("nothing should be appended before the session is ready")
	}
	if !strings.Contains(m.View(), session.NotInitializedText) {
		t.Error("view should say the session is not initialized")
	}
}

func TestInitFailureLocksInput(t *testing.T) {
	mgr := session.NewManager(&sessiontest.Backend{Err: errors.New("API key not valid")}, nil)
	m := newTestModelWith(t, mgr, &fakeClipboard{})

	var ready SessionReadyMsg
	for _, msg := range run(m.initSession()) {
		ready = msg.(SessionReadyMsg)
	}
	if !session.IsInitError(ready.Err) {
		t.Fatalf("err = %v, want InitError", ready.Err)
	}
	m, _ = update(m, ready)

	view := m.View()
	if !strings.Contains(view, session.InitFailedText) {
		t.Error("view should show the init failure banner")
	}
	if !strings.Contains(view, "offline") {
		t.Error("header should show the session as offline")
	}
	if strings.Contains(view, "API key not valid") {
		t.Error("error detail must stay out of the UI")
	}

	m.input.SetValue("hi")
	m, cmd := update(m, keyPress(tea.KeyEnter))
	if cmd != nil || m.pending {
		t.Error("submission must be refused after init failure")
	}
	if m.input.Focused() {
		t.Error("input should be blurred after init failure")
	}
}

func TestTypingIndicatorWhileWaiting(t *testing.T) {
	hold := make(chan struct{})
	m, _ := newTestModel(t, sessiontest.Reply{Err: errors.New("late failure"), Hold: hold})

	m.input.SetValue("hi")
	m, cmd := update(m, keyPress(tea.KeyEnter))

	doneCh := make(chan TurnDoneMsg, 1)
	go func() {
		for _, msg := range run(cmd) {
			if done, ok := msg.(TurnDoneMsg); ok {
				doneCh <- done
			}
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !(m.controller.Busy() && m.controller.Transcript().Len() == 2) {
		if time.Now().After(deadline) {
			t.Fatal("turn did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m, _ = update(m, refreshMsg{})
	if !m.typing.IsActive() {
		t.Error("typing indicator should run while the placeholder is empty")
	}
	if !strings.Contains(m.View(), typingText) {
		t.Error("view should show the typing indicator")
	}

	close(hold)
	m, _ = update(m, <-doneCh)
	if m.typing.IsActive() {
		t.Error("typing indicator should stop with the turn")
	}
}

// =============================================================================
// SIDE PANEL TESTS
// =============================================================================

func TestPanelCurriculumSubmitsTopic(t *testing.T) {
	m, s := newTestModel(t, sessiontest.Reply{Fragments: []string{"Lesson 1"}})

	m, _ = update(m, keyPress(tea.KeyCtrlB))
	if !m.panel.IsOpen() {
		t.Fatal("ctrl+b should open the panel")
	}
	if m.viewport.Width != 100-defaultPanelWidth {
		t.Errorf("viewport width = %d, want %d", m.viewport.Width, 100-defaultPanelWidth)
	}

	m, cmd := update(m, keyPress(tea.KeyEnter))
	if m.panel.IsOpen() {
		t.Error("panel should close after a selection")
	}
	m, _ = update(m, turnDone(t, cmd))

	want := curriculum.PromptFor("Python")
	if got := s.Prompts(); len(got) != 1 || got[0] != want {
		t.Errorf("prompts = %q, want [%q]", got, want)
	}
	if !strings.Contains(m.View(), "Lesson 1") {
		t.Error("reply should be shown")
	}
}

func TestPanelHistoryFillsInput(t *testing.T) {
	m, s := newTestModel(t,
		sessiontest.Reply{Fragments: []string{"one"}},
		sessiontest.Reply{Fragments: []string{"two"}},
	)
	m = send(t, m, "first question")
	m = send(t, m, "second question")

	m, _ = update(m, keyPress(tea.KeyCtrlB))
	m, _ = update(m, keyPress(tea.KeyTab))
	m, _ = update(m, keyPress(tea.KeyDown))
	m, cmd := update(m, keyPress(tea.KeyEnter))

	if m.input.Value() != "first question" {
		t.Errorf("input = %q, want the older question", m.input.Value())
	}
	for _, msg := range run(cmd) {
		if _, ok := msg.(TurnDoneMsg); ok {
			t.Error("history selection must not submit")
		}
	}
	if len(s.Prompts()) != 2 {
		t.Errorf("prompts = %d, want 2", len(s.Prompts()))
	}
}

func TestPanelEscCloses(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(m, keyPress(tea.KeyCtrlB))
	m, _ = update(m, keyPress(tea.KeyEsc))
	if m.panel.IsOpen() {
		t.Error("esc should close the panel")
	}
	if m.viewport.Width != 100 {
		t.Errorf("viewport width = %d, want 100", m.viewport.Width)
	}
}

// =============================================================================
// REVEAL AND COPY TESTS
// =============================================================================

const hintReply = "Write a loop that prints 1 to 3.\n\n" +
	`<details class="hint-details"><summary>Need a Hint?</summary>Use range.</details>` + "\n\n" +
	`<details class="answer-details"><summary>Show Answer</summary>for i := range 3 {}</details>`

func TestRevealHintsAndAnswers(t *testing.T) {
	m, _ := newTestModel(t, sessiontest.Reply{Fragments: []string{hintReply}})
	m = send(t, m, "quiz me")

	view := m.View()
	if strings.Contains(view, "Use range.") || strings.Contains(view, "for i := range 3") {
		t.Error("hint and answer should start hidden")
	}
	if !strings.Contains(view, "1 hint and 1 answer hidden") {
		t.Error("view should say what is hidden")
	}

	m.input.SetValue("ab")
	m, _ = update(m, keyPress(tea.KeyCtrlH))
	m, _ = update(m, keyPress(tea.KeyBackspace))
	if strings.Contains(m.View(), "Use range.") {
		t.Error("backspace should not reveal the hint")
	}
	if m.input.Value() == "ab" {
		t.Error("backspace should still edit the input")
	}
	m.input.SetValue("")

	m, _ = update(m, keyPress(tea.KeyCtrlT))
	view = m.View()
	if !strings.Contains(view, "Use range.") {
		t.Error("ctrl+t should reveal the hint")
	}
	if strings.Contains(view, "for i := range 3") {
		t.Error("answer should stay hidden")
	}

	m, _ = update(m, keyPress(tea.KeyCtrlA))
	if !strings.Contains(m.View(), "for i := range 3") {
		t.Error("ctrl+a should reveal the answer")
	}

	m.input.SetValue("next")
	m, _ = update(m, keyPress(tea.KeyEnter))
	if m.reveal != (markdown.Reveal{}) {
		t.Error("reveal should reset on a new turn")
	}
}

func TestCopyLastAnswer(t *testing.T) {
	clip := &fakeClipboard{}
	s := sessiontest.NewSession(sessiontest.Reply{Fragments: []string{"print('hi')"}})
	m := newTestModelWith(t, sessiontest.ReadyManager(s), clip)

	m, cmd := update(m, keyPress(tea.KeyCtrlY))
	if cmd != nil {
		t.Error("nothing to copy before a reply")
	}
	if m.notice != "Nothing to copy yet." {
		t.Errorf("notice = %q", m.notice)
	}

	m = send(t, m, "hello world in python")
	m, cmd = update(m, keyPress(tea.KeyCtrlY))
	msgs := run(cmd)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m, _ = update(m, msgs[0])

	if clip.text != "print('hi')" {
		t.Errorf("clipboard = %q", clip.text)
	}
	if !strings.Contains(m.View(), "Copied answer") {
		t.Error("footer should confirm the copy")
	}
}

func TestCopyFailureIsReported(t *testing.T) {
	clip := &fakeClipboard{err: errors.New("no clipboard")}
	s := sessiontest.NewSession(sessiontest.Reply{Fragments: []string{"x"}})
	m := newTestModelWith(t, sessiontest.ReadyManager(s), clip)
	m = send(t, m, "q")

	m, cmd := update(m, keyPress(tea.KeyCtrlY))
	m, _ = update(m, run(cmd)[0])
	if !strings.HasPrefix(m.notice, "Copy failed") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestHiddenNote(t *testing.T) {
	tests := []struct {
		folded markdown.Folded
		want   string
	}{
		{markdown.Folded{}, ""},
		{markdown.Folded{Hints: 1}, "1 hint hidden (C-t)"},
		{markdown.Folded{Answers: 2}, "2 answers hidden (C-a)"},
		{markdown.Folded{Hints: 2, Answers: 1}, "2 hints and 1 answer hidden (C-t / C-a)"},
	}
	for _, tt := range tests {
		if got := hiddenNote(tt.folded); got != tt.want {
			t.Errorf("hiddenNote(%+v) = %q, want %q", tt.folded, got, tt.want)
		}
	}
}

func TestListenStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := sessiontest.NewSession()
	mgr := sessiontest.ReadyManager(s)
	m := New(Options{Manager: mgr, Controller: turn.New(model.NewTranscript(), mgr, nil), Context: ctx})
	defer m.Close()

	cancel()
	if msg := m.listen()(); msg != nil {
		t.Errorf("listen after cancel = %#v, want nil", msg)
	}
}
