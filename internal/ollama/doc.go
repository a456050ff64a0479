// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// CodeAI uses it as an alternative chat backend when provider = "ollama".
// Only the calls the chat shell needs are implemented: a reachability check
// and a streaming chat completion.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - Message: chat message with role and content
//   - StreamChunk: one decoded line of a streaming response
//   - StreamReader: NDJSON decoder for streaming responses
//   - ClientError: typed error with an ErrorType for handling
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      "http://127.0.0.1:11434",
//	    DefaultModel: "qwen2.5-coder:7b",
//	})
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	err := client.ChatStream(ctx, "", messages, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
package ollama
