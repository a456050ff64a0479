// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/codeai-tui/internal/cli"
	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/server"
	"github.com/jeranaias/codeai-tui/internal/ui/chat"
	"github.com/jeranaias/codeai-tui/internal/ui/styles"
)

// =============================================================================
// TERMINAL UI
// =============================================================================

func runTUI(cmd *cobra.Command, args []string) error {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		return &cli.ExitError{
			Code: cli.ExitUsageError,
			Err:  errors.New("the chat interface needs a terminal; use 'codeai ask' or 'codeai chat' instead"),
		}
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	m := chat.New(chat.Options{
		Manager:     a.manager,
		Controller:  a.controller,
		Curriculum:  a.curriculum,
		Renderer:    markdown.NewTerminal(theme.GlamourStyle(cfg.UI.Theme)),
		Theme:       theme,
		Logger:      logger,
		ModelID:     cfg.EffectiveModel(),
		PanelWidth:  cfg.UI.PanelWidth,
		WordWrap:    cfg.UI.WordWrap,
		ShowWelcome: cfg.UI.ShowWelcome,
		Context:     cmd.Context(),
	})
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
			return nil
		}
		return fmt.Errorf("chat interface: %w", err)
	}
	return nil
}

// =============================================================================
// LINE SHELLS
// =============================================================================

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in a line-based REPL",
	Long: `Starts a line-based chat with history and tab completion.

Commands inside the chat:
  /topics          List curriculum topics
  /learn <topic>   Start a topic by name or number
  /history         Show your messages, newest first
  /hints           Reveal hints in the last reply
  /answers         Reveal answers in the last reply
  /quit            Exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		return cli.HandleChat(cmd.Context(), a.env(cmd))
	},
}

var askFlags struct {
	hints   bool
	answers bool
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the reply",
	Long: `Sends one question and prints the reply. With no arguments, or "-",
the question is read from stdin.

Examples:
  codeai ask "What is a pointer in C?"
  codeai ask --answers "Quiz me on Python lists"
  echo "Explain Java interfaces" | codeai ask`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question, err := cli.ReadQuestion(args, cmd.InOrStdin(), cli.IsTTY())
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		reveal := markdown.Reveal{Hints: askFlags.hints || askFlags.answers, Answers: askFlags.answers}
		return cli.HandleAsk(cmd.Context(), a.env(cmd), question, reveal)
	},
}

func init() {
	askCmd.Flags().BoolVar(&askFlags.hints, "hints", false, "show hints in the reply")
	askCmd.Flags().BoolVar(&askFlags.answers, "answers", false, "show hints and answers in the reply")
}

// =============================================================================
// WEB SHELL
// =============================================================================

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat in a browser",
	Long: `Starts the browser shell. It listens on loopback by default and has
no authentication; do not expose it to a network.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLogStderr: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := server.New(server.Options{
			Addr:       addr,
			Manager:    a.manager,
			Controller: a.controller,
			Curriculum: a.curriculum,
			Logger:     logger,
		})
		defer srv.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			// Failure is reported through /health and the page banner.
			if _, err := a.manager.Initialize(ctx, a.curriculum.SystemInstruction(), cfg.EffectiveModel()); err != nil {
				logger.Warn("session unavailable", zap.Error(err))
			}
			return nil
		})
		g.Go(func() error {
			return srv.Run(ctx)
		})

		fmt.Fprintf(cmd.ErrOrStderr(), "%s http://%s\n", cli.TitleStyle.Render("CodeAI"), srv.Addr())
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8765)")
}

// =============================================================================
// TOPICS, CONFIG, VERSION
// =============================================================================

var topicsJSON bool

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List curriculum topics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cur, err := curriculum.Load(cfg.Curriculum.File)
		if err != nil {
			return &cli.ExitError{Code: cli.ExitConfigError, Err: err}
		}
		return cli.HandleTopics(cmd.OutOrStdout(), cur, topicsJSON)
	},
}

var configFlags struct {
	json  bool
	force bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and modify configuration",
	Long: `Shows or changes ~/.codeai/config.toml.

Examples:
  codeai config                        Show the effective configuration
  codeai config path                   Show the config file location
  codeai config init                   Write a default config file
  codeai config set provider ollama
  codeai config set ui.theme light`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return cli.HandleConfigShow(cmd.OutOrStdout(), cfg, configFlags.json)
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Show the config file location",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		return cli.HandleConfigPath(cmd.OutOrStdout(), path)
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default config file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		return cli.HandleConfigInit(cmd.OutOrStdout(), path, configFlags.force)
	},
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Change one setting",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		return cli.HandleConfigSet(cmd.OutOrStdout(), path, args[0], args[1])
	},
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show version information",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.HandleVersion(cmd.OutOrStdout(), versionJSON)
	},
}

func init() {
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "output JSON")

	configCmd.PersistentFlags().BoolVar(&configFlags.json, "json", false, "output JSON")
	configInitCmd.Flags().BoolVarP(&configFlags.force, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configSetCmd)

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output JSON")
}
