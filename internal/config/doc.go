// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates the codeai configuration.
//
// # Configuration Precedence
//
// Values are resolved in this order, later entries winning:
//   - Built-in defaults
//   - ~/.codeai/config.toml (or the file given with --config)
//   - Environment variables (GEMINI_API_KEY, API_KEY, CODEAI_*)
//   - Command line flags, applied by the caller
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	model := cfg.EffectiveModel()
//
// The file must be readable only by its owner; Load tightens looser
// permissions because it may hold an API key.
package config
