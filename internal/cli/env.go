// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/config"
	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/turn"
)

// Env bundles the components the conversational commands run against.
// main builds one per process.
type Env struct {
	Config     *config.Config
	Manager    *session.Manager
	Controller *turn.Controller
	Curriculum *curriculum.Curriculum
	Renderer   *markdown.Terminal
	Logger     *zap.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive replaces each streamed reply with its glamour rendering
	// once complete. Set it only when Stdout is a terminal.
	Interactive bool

	// Width is the terminal width. Zero means detect it.
	Width int
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) termWidth() int {
	if e.Width > 0 {
		return e.Width
	}
	return GetTerminalWidth()
}

// wrapWidth is the width replies are rendered at.
func (e *Env) wrapWidth() int {
	w := e.termWidth()
	if e.Config != nil && e.Config.UI.WordWrap > 0 && w > e.Config.UI.WordWrap {
		w = e.Config.UI.WordWrap
	}
	return max(w, markdown.MinWidth)
}

// InitSession opens the model session. On failure the banner text is
// printed on Stderr and an *ExitError is returned.
func (e *Env) InitSession(ctx context.Context) error {
	modelID := ""
	if e.Config != nil {
		modelID = e.Config.EffectiveModel()
	}
	if _, err := e.Manager.Initialize(ctx, e.Curriculum.SystemInstruction(), modelID); err != nil {
		msg := err.Error()
		var initErr *session.InitError
		if errors.As(err, &initErr) {
			msg = initErr.UserMessage()
		}
		fmt.Fprintln(e.Stderr, ErrorStyle.Render(msg))
		return &ExitError{Code: ExitGeneralError, Err: err, Printed: true}
	}
	return nil
}
