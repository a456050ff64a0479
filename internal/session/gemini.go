// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// =============================================================================
// GEMINI BACKEND
// =============================================================================

// GeminiConfig configures the hosted Gemini backend.
type GeminiConfig struct {
	// APIKey is required. It is read once at startup.
	APIKey string

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string

	// Verify makes Open fetch the model metadata so that a rejected key or
	// unknown model fails initialization instead of the first turn.
	Verify bool

	// VerifyTimeout bounds the verification request (default: 15s).
	VerifyTimeout time.Duration

	// HTTPClient is optional.
	HTTPClient *http.Client
}

// GeminiBackend opens chat sessions with the genai SDK.
type GeminiBackend struct {
	cfg    GeminiConfig
	logger *zap.Logger
}

// NewGeminiBackend creates a Gemini backend.
func NewGeminiBackend(cfg GeminiConfig, logger *zap.Logger) *GeminiBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VerifyTimeout == 0 {
		cfg.VerifyTimeout = 15 * time.Second
	}
	return &GeminiBackend{cfg: cfg, logger: logger.Named("gemini")}
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return "gemini" }

// Open implements Backend.
func (b *GeminiBackend) Open(ctx context.Context, systemInstruction, modelID string) (Session, error) {
	if modelID == "" {
		modelID = DefaultGeminiModel
	}
	fail := func(cause error) (Session, error) {
		return nil, &InitError{Backend: b.Name(), Model: modelID, Cause: cause}
	}

	if b.cfg.APIKey == "" {
		return fail(ErrMissingAPIKey)
	}

	cc := &genai.ClientConfig{
		APIKey:     b.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: b.cfg.HTTPClient,
	}
	if b.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: b.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		// The SDK error echoes the whole client config, key included.
		b.logger.Debug("genai client rejected configuration")
		return fail(errors.New("gemini client configuration rejected"))
	}

	if b.cfg.Verify {
		vctx, cancel := context.WithTimeout(ctx, b.cfg.VerifyTimeout)
		defer cancel()
		if _, err := client.Models.Get(vctx, modelID, nil); err != nil {
			return fail(err)
		}
	}

	var config *genai.GenerateContentConfig
	if systemInstruction != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}
	chat, err := client.Chats.Create(ctx, modelID, config, nil)
	if err != nil {
		return fail(err)
	}

	return &geminiSession{chat: chat, model: modelID, logger: b.logger}, nil
}

// =============================================================================
// GEMINI SESSION
// =============================================================================

type geminiSession struct {
	// genai.Chat records history after each send and is not safe for
	// concurrent sends.
	mu     sync.Mutex
	chat   *genai.Chat
	model  string
	logger *zap.Logger
}

func (s *geminiSession) Model() string { return s.model }

func (s *geminiSession) Stream(ctx context.Context, text string) iter.Seq2[string, error] {
	return singleUse(func(yield func(string, error) bool) {
		s.mu.Lock()
		defer s.mu.Unlock()

		delivered := 0
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				s.logger.Warn("stream failed", zap.Int("fragments", delivered), zap.Error(err))
				yield("", &StreamError{Backend: "gemini", Fragments: delivered, Cause: err})
				return
			}
			fragment := resp.Text()
			if fragment == "" {
				continue
			}
			delivered++
			if !yield(fragment, nil) {
				return
			}
		}
		s.logger.Debug("stream complete", zap.Int("fragments", delivered))
	})
}
