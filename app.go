// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/cli"
	"github.com/jeranaias/codeai-tui/internal/config"
	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/ollama"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/turn"
)

// =============================================================================
// COMPONENT WIRING
// =============================================================================

// app holds the components shared by every shell: one session manager,
// one transcript and the controller that writes to it.
type app struct {
	cfg        *config.Config
	manager    *session.Manager
	controller *turn.Controller
	curriculum *curriculum.Curriculum
	logger     *zap.Logger
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	cur, err := curriculum.Load(cfg.Curriculum.File)
	if err != nil {
		return nil, &cli.ExitError{Code: cli.ExitConfigError, Err: err}
	}
	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return nil, &cli.ExitError{Code: cli.ExitConfigError, Err: err}
	}
	mgr := session.NewManager(backend, logger)
	return &app{
		cfg:        cfg,
		manager:    mgr,
		controller: turn.New(model.NewTranscript(), mgr, logger),
		curriculum: cur,
		logger:     logger,
	}, nil
}

// buildBackend selects the model backend for cfg.Provider.
func buildBackend(cfg *config.Config, logger *zap.Logger) (session.Backend, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return session.NewGeminiBackend(session.GeminiConfig{
			APIKey:        cfg.Gemini.APIKey,
			BaseURL:       cfg.Gemini.BaseURL,
			Verify:        true,
			VerifyTimeout: cfg.Gemini.Timeout.Duration,
		}, logger), nil
	case config.ProviderOllama:
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Ollama.URL,
			DefaultModel: cfg.Ollama.Model,
		})
		return session.NewOllamaBackend(client, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", session.ErrUnknownBackend, cfg.Provider)
	}
}

// glamourStyle picks the Markdown style for line output.
func glamourStyle(theme string, interactive bool) string {
	if !interactive {
		return "notty"
	}
	switch theme {
	case "dark", "light":
		return theme
	}
	return "auto"
}

// env builds the line-shell environment for cmd.
func (a *app) env(cmd *cobra.Command) *cli.Env {
	interactive := cli.IsStdoutTTY()
	return &cli.Env{
		Config:      a.cfg,
		Manager:     a.manager,
		Controller:  a.controller,
		Curriculum:  a.curriculum,
		Renderer:    markdown.NewTerminal(glamourStyle(a.cfg.UI.Theme, interactive)),
		Logger:      a.logger,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Interactive: interactive,
	}
}
