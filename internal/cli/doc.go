// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented commands: the chat REPL, single
// question mode, and the topics, config and version commands.
//
// Commands:
//
//	codeai chat              Interactive chat with line editing
//	codeai ask "question"    Ask once and print the reply
//	codeai topics [--json]   List curriculum topics
//	codeai config show       Show the effective configuration
//	codeai config path       Show the config file location
//	codeai config init       Write a default config file
//	codeai config set k v    Change one setting
//	codeai version           Show version information
//
// Output is colored only when stdout is a terminal and NO_COLOR is unset.
package cli
