// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual pieces of the codeai TUI: the
// header, transcript entries, the side panel, banners and the typing
// indicator. Components render strings; the chat model owns the state
// they are built from.
package components
