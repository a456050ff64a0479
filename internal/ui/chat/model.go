// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/turn"
	"github.com/jeranaias/codeai-tui/internal/ui/components"
	"github.com/jeranaias/codeai-tui/internal/ui/styles"
)

// Placeholder is the hint shown in the empty input line.
const Placeholder = "Ask to teach a concept, or generate a quiz..."

const (
	defaultPanelWidth = 28
	defaultWordWrap   = 100
	typingText        = "CodeAI is typing"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the chat model to the rest of the application. Manager and
// Controller are required.
type Options struct {
	Manager    *session.Manager
	Controller *turn.Controller
	Curriculum *curriculum.Curriculum
	Renderer   *markdown.Terminal
	Theme      *styles.Theme
	Logger     *zap.Logger

	// ModelID is passed to session initialization; "" means the backend
	// default.
	ModelID     string
	PanelWidth  int
	WordWrap    int
	ShowWelcome bool

	// Clipboard replaces the system clipboard.
	Clipboard func(string) error

	// Context bounds initialization and every turn.
	Context context.Context
}

// =============================================================================
// CHAT MODEL
// =============================================================================

type renderKey struct {
	text   string
	width  int
	reveal markdown.Reveal
}

type renderEntry struct {
	key    renderKey
	out    string
	folded markdown.Folded
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	manager    *session.Manager
	controller *turn.Controller
	curriculum *curriculum.Curriculum
	renderer   *markdown.Terminal
	theme      *styles.Theme
	logger     *zap.Logger
	clipboard  func(string) error
	ctx        context.Context

	modelID     string
	panelWidth  int
	wordWrap    int
	showWelcome bool

	// Dimensions
	width  int
	height int

	// UI Components
	header   *components.Header
	panel    *components.SidePanel
	typing   components.TypingIndicator
	viewport viewport.Model
	input    textinput.Model
	help     help.Model
	keys     KeyMap

	// notify carries change signals from the stores; buffered to one so
	// bursts coalesce into a single redraw.
	notify      chan struct{}
	unsubscribe []func()

	// Rendered model replies by message ID.
	cache        map[string]renderEntry
	welcome      string
	welcomeWidth int

	// reveal applies to the latest model reply only.
	reveal  markdown.Reveal
	pending bool
	notice  string
}

// New creates a chat model and subscribes it to the transcript, the turn
// controller and the session manager.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}
	if opts.Renderer == nil {
		opts.Renderer = markdown.NewTerminal(opts.Theme.GlamourStyle("auto"))
	}
	if opts.Curriculum == nil {
		opts.Curriculum = curriculum.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = copyToClipboard
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.PanelWidth <= 0 {
		opts.PanelWidth = defaultPanelWidth
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = defaultWordWrap
	}

	theme := opts.Theme

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = Placeholder
	ti.CharLimit = 8000
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	header := components.NewHeader(theme, opts.Curriculum.Title, opts.Curriculum.Subtitle)
	header.Model = opts.ModelID

	m := Model{
		manager:     opts.Manager,
		controller:  opts.Controller,
		curriculum:  opts.Curriculum,
		renderer:    opts.Renderer,
		theme:       theme,
		logger:      opts.Logger.Named("tui"),
		clipboard:   opts.Clipboard,
		ctx:         opts.Context,
		modelID:     opts.ModelID,
		panelWidth:  opts.PanelWidth,
		wordWrap:    opts.WordWrap,
		showWelcome: opts.ShowWelcome,
		header:      header,
		panel:       components.NewSidePanel(theme, opts.Curriculum.Names()),
		typing:      components.NewTypingIndicator(theme, typingText),
		viewport:    vp,
		input:       ti,
		help:        help.New(),
		keys:        DefaultKeyMap(),
		notify:      make(chan struct{}, 1),
		cache:       make(map[string]renderEntry),
	}

	signal := m.signal
	m.unsubscribe = append(m.unsubscribe,
		m.controller.Transcript().Subscribe(func(model.Change) { signal() }),
		m.controller.Subscribe(func(turn.State) { signal() }),
	)
	m.manager.OnStateChange(func(session.State) { signal() })

	m.applySessionState()
	return m
}

// Init starts session initialization and the change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initSession(), m.listen())
}

// Close detaches the model from the transcript and the controller.
func (m Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// signal records that something changed without blocking the caller.
func (m Model) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// listen waits for the next change signal.
func (m Model) listen() tea.Cmd {
	notify, ctx := m.notify, m.ctx
	return func() tea.Msg {
		select {
		case <-notify:
			return refreshMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// initSession opens the session with the tutor instruction.
func (m Model) initSession() tea.Cmd {
	mgr, ctx := m.manager, m.ctx
	instruction, modelID := m.curriculum.SystemInstruction(), m.modelID
	return func() tea.Msg {
		s, err := mgr.Initialize(ctx, instruction, modelID)
		if err != nil {
			return SessionReadyMsg{Err: err}
		}
		return SessionReadyMsg{Model: s.Model()}
	}
}

// submit runs one turn through the controller.
func (m Model) submit(text string) tea.Cmd {
	ctrl, ctx := m.controller, m.ctx
	return func() tea.Msg {
		return TurnDoneMsg{Text: text, Err: ctrl.Submit(ctx, text)}
	}
}

// copyLastAnswer copies the latest model reply as Markdown source.
func (m *Model) copyLastAnswer() tea.Cmd {
	last, ok := m.controller.Transcript().LastFrom(model.RoleModel)
	if !ok || last.IsEmpty() {
		m.notice = "Nothing to copy yet."
		return nil
	}
	clip, text := m.clipboard, last.Text
	return func() tea.Msg {
		return CopiedMsg{Chars: len([]rune(text)), Err: clip(text)}
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// inputLocked reports whether submissions are currently refused by the UI.
func (m Model) inputLocked() bool {
	return m.pending || m.controller.Busy() || m.manager.State() == session.StateFailed
}

// applySessionState mirrors the manager state into the header and the
// input focus.
func (m *Model) applySessionState() tea.Cmd {
	switch m.manager.State() {
	case session.StateReady:
		m.header.Status = components.StatusReady
	case session.StateFailed:
		m.header.Status = components.StatusFailed
	default:
		m.header.Status = components.StatusInitializing
	}

	if m.inputLocked() {
		m.input.Blur()
		return nil
	}
	if !m.input.Focused() {
		return m.input.Focus()
	}
	return nil
}

// historyEntries returns the user's messages, newest first.
func (m Model) historyEntries() []string {
	var out []string
	for msg := range m.controller.Transcript().UserHistory() {
		out = append(out, msg.Text)
	}
	return out
}
