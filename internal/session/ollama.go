// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"iter"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/ollama"
)

// =============================================================================
// OLLAMA BACKEND
// =============================================================================

// OllamaBackend opens sessions against a local Ollama server. The Ollama
// chat API is stateless, so the session replays the accumulated turns with
// every request.
type OllamaBackend struct {
	client *ollama.Client
	logger *zap.Logger
}

// NewOllamaBackend creates an Ollama backend.
func NewOllamaBackend(client *ollama.Client, logger *zap.Logger) *OllamaBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaBackend{client: client, logger: logger.Named("ollama")}
}

// Name implements Backend.
func (b *OllamaBackend) Name() string { return "ollama" }

// Open implements Backend. It fails when the server is unreachable.
func (b *OllamaBackend) Open(ctx context.Context, systemInstruction, modelID string) (Session, error) {
	if modelID == "" {
		modelID = b.client.DefaultModel()
	}
	if err := b.client.CheckRunning(ctx); err != nil {
		return nil, &InitError{Backend: b.Name(), Model: modelID, Cause: err}
	}

	s := &ollamaSession{client: b.client, model: modelID, logger: b.logger}
	if systemInstruction != "" {
		s.history = append(s.history, ollama.NewSystemMessage(systemInstruction))
	}
	return s, nil
}

// =============================================================================
// OLLAMA SESSION
// =============================================================================

type ollamaSession struct {
	mu      sync.Mutex
	client  *ollama.Client
	model   string
	history []ollama.Message
	logger  *zap.Logger
}

func (s *ollamaSession) Model() string { return s.model }

// Stream sends the history plus text. The turn is recorded only when the
// reply completes, so a failed turn leaves no trace in later requests.
func (s *ollamaSession) Stream(ctx context.Context, text string) iter.Seq2[string, error] {
	return singleUse(func(yield func(string, error) bool) {
		s.mu.Lock()
		defer s.mu.Unlock()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		request := make([]ollama.Message, 0, len(s.history)+1)
		request = append(request, s.history...)
		request = append(request, ollama.NewUserMessage(text))

		var reply strings.Builder
		delivered := 0
		stopped := false
		err := s.client.ChatStream(ctx, s.model, request, func(chunk ollama.StreamChunk) {
			if chunk.Done {
				s.logDone(chunk)
			}
			if stopped || chunk.Content == "" {
				return
			}
			reply.WriteString(chunk.Content)
			delivered++
			if !yield(chunk.Content, nil) {
				stopped = true
				cancel()
			}
		})
		if stopped {
			return
		}
		if err != nil {
			s.logger.Warn("stream failed", zap.Int("fragments", delivered), zap.Error(err))
			yield("", &StreamError{Backend: "ollama", Fragments: delivered, Cause: err})
			return
		}

		s.history = append(s.history,
			ollama.NewUserMessage(text),
			ollama.NewAssistantMessage(reply.String()))
	})
}

// logDone records the usage figures Ollama reports on the final chunk.
func (s *ollamaSession) logDone(chunk ollama.StreamChunk) {
	s.logger.Debug("reply complete",
		zap.String("model", chunk.Model),
		zap.String("done_reason", chunk.DoneReason),
		zap.Int("prompt_tokens", chunk.PromptTokens),
		zap.Int("completion_tokens", chunk.CompletionTokens),
		zap.Duration("total_duration", chunk.TotalDuration),
		zap.Float64("tokens_per_second", chunk.TokensPerSecond()),
	)
}
