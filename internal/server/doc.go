// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the browser shell: a small HTTP API over the
// shared transcript and turn controller, an embedded single page, and a
// WebSocket feed that pushes a transcript snapshot after every change.
//
// Endpoints:
//   - GET  /                   - Chat page
//   - GET  /health             - Health check with session state
//   - GET  /api/transcript     - Current transcript snapshot
//   - POST /api/messages       - Submit a message
//   - GET  /api/history        - User messages, newest first
//   - GET  /api/export         - Transcript download (?format=markdown|json|html)
//   - GET  /api/topics         - Curriculum topics
//   - POST /api/topics/{name}  - Start a curriculum topic
//   - GET  /ws                 - Snapshot push channel
//
// The server binds to loopback by default and has no authentication.
// POST requests must be application/json and, when the browser sends an
// Origin, come from the served host.
package server
