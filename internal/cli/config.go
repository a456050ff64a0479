// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jeranaias/codeai-tui/internal/config"
)

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

// HandleConfigShow prints the effective configuration with secrets redacted.
func HandleConfigShow(w io.Writer, cfg *config.Config, asJSON bool) error {
	safe := cfg.Redacted()
	if asJSON {
		_, err := fmt.Fprintln(w, safe.String())
		return err
	}

	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	fmt.Fprintln(w)
	for _, key := range config.Keys() {
		v, err := safe.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "  "+LabelStyle.Render(key)+ValueStyle.Render(formatValue(v)))
	}
	return nil
}

// HandleConfigPath prints the config file location.
func HandleConfigPath(w io.Writer, path string) error {
	_, err := fmt.Fprintln(w, path)
	return err
}

// HandleConfigInit writes a default config file. An existing file is kept
// unless force is set.
func HandleConfigInit(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return usageError("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return configError(err)
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return configError(err)
	}
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}

// HandleConfigSet changes one key in the config file. Environment
// overrides are not applied, so they are never written back.
func HandleConfigSet(w io.Writer, path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return configError(err)
		}
	}
	cfg.SetDefaults()

	if err := cfg.Set(key, value); err != nil {
		return usageError("%v (keys: %s)", err, strings.Join(config.Keys(), ", "))
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return configError(err)
	}

	shown := value
	if strings.HasSuffix(key, "api_key") && value != "" {
		shown = "[REDACTED]"
	}
	fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("Set"), key, shown)
	return nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	return fmt.Sprint(v)
}
