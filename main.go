// codeai - A terminal tutor for learning programming languages.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/cli"
	"github.com/jeranaias/codeai-tui/internal/config"
	"github.com/jeranaias/codeai-tui/internal/logging"
)

// Command annotations read by setup.
const (
	// annotationNoConfig skips loading the config file, so a broken file
	// can still be inspected and repaired.
	annotationNoConfig = "codeai/no-config"
	// annotationLogStderr mirrors log output on stderr.
	annotationLogStderr = "codeai/log-stderr"
)

var (
	// Global flags
	configPath   string
	modelFlag    string
	providerFlag string
	verbose      bool

	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd runs the terminal UI.
var rootCmd = &cobra.Command{
	Use:   "codeai",
	Short: "CodeAI - an AI tutor for Python, Java, C, C++ and R",
	Long: `CodeAI teaches programming step by step, like an online textbook course.

Run without arguments to start the full-screen chat interface. Pick a
language from the side panel (ctrl+b) or ask anything, including "quiz me".

Set GEMINI_API_KEY, or use --provider ollama for a local model.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	Args:              cobra.NoArgs,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.codeai/config.toml)")
	pf.StringVarP(&modelFlag, "model", "m", "", "model to use (overrides config)")
	pf.StringVarP(&providerFlag, "provider", "p", "", "model provider: gemini or ollama")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &cli.ExitError{Code: cli.ExitUsageError, Err: err}
	})

	rootCmd.AddCommand(chatCmd, askCmd, serveCmd, topicsCmd, configCmd, versionCmd)
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[annotationNoConfig] != "" {
		return nil
	}

	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &cli.ExitError{Code: cli.ExitConfigError, Err: err}
	}

	if providerFlag != "" {
		cfg.Provider = strings.ToLower(providerFlag)
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if err := cfg.Validate(); err != nil {
		return &cli.ExitError{Code: cli.ExitUsageError, Err: err}
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	logger, err = logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Verbose: verbose,
		File:    logPath,
		Stderr:  cmd.Annotations[annotationLogStderr] != "",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("starting",
		zap.String("command", cmd.Name()),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.EffectiveModel()),
		zap.String("version", cli.Version))
	return nil
}

// configFilePath is the file the config subcommands act on.
func configFilePath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.ConfigPath()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !cli.IsPrinted(err) {
			fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error: "+err.Error()))
		}
		os.Exit(cli.ExitCode(err))
	}
}
