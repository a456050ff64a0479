// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/export"
	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/turn"
	"github.com/jeranaias/codeai-tui/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the loopback address served when none is configured.
	DefaultAddr = "127.0.0.1:8765"

	// MaxRequestBodySize bounds POST bodies.
	MaxRequestBodySize = 64 * 1024

	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout = 5 * time.Second

	// Placeholder is the hint shown in the empty message box.
	Placeholder = "Ask to teach a concept, or generate a quiz..."
)

//go:embed templates/index.html
var indexHTML string

//go:embed static
var staticFiles embed.FS

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

// ============================================================================
// SERVER
// ============================================================================

// Options wires the server to the shared session and transcript.
type Options struct {
	Addr       string
	Manager    *session.Manager
	Controller *turn.Controller
	Curriculum *curriculum.Curriculum
	Logger     *zap.Logger
}

// Server is the browser shell.
type Server struct {
	addr       string
	manager    *session.Manager
	controller *turn.Controller
	curriculum *curriculum.Curriculum
	html       *markdown.HTML
	hub        *Hub
	logger     *zap.Logger
	router     *http.ServeMux
	handler    http.Handler
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	rendered map[string]renderedMessage
	turnCtx  context.Context
	turns    sync.WaitGroup

	changed     chan struct{}
	unsubscribe []func()
}

// New creates a server and subscribes it to transcript, controller and
// session changes.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Curriculum == nil {
		opts.Curriculum = curriculum.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.Named("server")

	s := &Server{
		addr:       opts.Addr,
		manager:    opts.Manager,
		controller: opts.Controller,
		curriculum: opts.Curriculum,
		html:       markdown.NewHTML(),
		hub:        NewHub(logger),
		logger:     logger,
		router:     http.NewServeMux(),
		rendered:   make(map[string]renderedMessage),
		turnCtx:    context.Background(),
		changed:    make(chan struct{}, 1),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(logger),
		SameOriginMiddleware(logger),
	)(s.router)

	s.unsubscribe = append(s.unsubscribe,
		s.controller.Transcript().Subscribe(func(model.Change) { s.signal() }),
		s.controller.Subscribe(func(turn.State) { s.signal() }),
	)
	s.manager.OnStateChange(func(session.State) { s.signal() })
	return s
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.router.HandleFunc("GET /health", s.handleHealth)

	s.router.HandleFunc("GET /api/transcript", s.handleTranscript)
	s.router.HandleFunc("POST /api/messages", s.handleMessages)
	s.router.HandleFunc("GET /api/history", s.handleHistory)
	s.router.HandleFunc("GET /api/export", s.handleExport)
	s.router.HandleFunc("GET /api/topics", s.handleTopics)
	s.router.HandleFunc("POST /api/topics/{name}", s.handleTopicStart)

	s.router.HandleFunc("GET /ws", s.handleWebSocket)
}

// ============================================================================
// PAGE HANDLER
// ============================================================================

type pageData struct {
	Title       string
	Subtitle    string
	Greeting    template.HTML
	Placeholder string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	greeting, err := s.html.Render(s.curriculum.Greeting)
	if err != nil {
		greeting = markdown.EscapeUserText(s.curriculum.Greeting)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = pageTemplate.Execute(w, pageData{
		Title:    s.curriculum.Title,
		Subtitle: s.curriculum.Subtitle,
		// Sanitized by the markdown policy.
		Greeting:    template.HTML(greeting),
		Placeholder: Placeholder,
	})
	if err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// ============================================================================
// API HANDLERS
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Backend string `json:"backend"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Session: s.manager.State().String(),
		Backend: s.manager.BackendName(),
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snapshot())
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Message is too long")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	s.submit(w, util.NormalizeInput(req.Text))
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	History []string `json:"history"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp := HistoryResponse{History: []string{}}
	for m := range s.controller.Transcript().UserHistory() {
		resp.History = append(resp.History, m.Text)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}
	exporter, err := export.ForFormat(format, export.DefaultOptions())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Unknown export format")
		return
	}

	modelID := ""
	if sess, err := s.manager.Session(); err == nil {
		modelID = sess.Model()
	}
	conv := export.FromTranscript(s.controller.Transcript(), s.curriculum.Title, modelID)

	data, err := exporter.Export(conv)
	switch {
	case errors.Is(err, export.ErrEmpty):
		s.writeError(w, http.StatusNotFound, "Nothing to export yet")
		return
	case err != nil:
		s.logger.Error("export failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", exporter.MimeType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.DefaultFilename(conv, exporter)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write export", zap.Error(err))
	}
}

// TopicsResponse is the body of GET /api/topics.
type TopicsResponse struct {
	Title    string             `json:"title"`
	Subtitle string             `json:"subtitle"`
	Topics   []curriculum.Topic `json:"topics"`
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, TopicsResponse{
		Title:    s.curriculum.Title,
		Subtitle: s.curriculum.Subtitle,
		Topics:   s.curriculum.Topics,
	})
}

func (s *Server) handleTopicStart(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.curriculum.Prompt(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Unknown topic")
		return
	}
	s.submit(w, prompt)
}

// submit starts a turn and maps refusals to status codes.
func (s *Server) submit(w http.ResponseWriter, text string) {
	s.mu.Lock()
	ctx := s.turnCtx
	s.mu.Unlock()

	done, err := s.controller.Start(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, turn.ErrEmptyInput):
		s.writeError(w, http.StatusBadRequest, "Message is empty")
		return
	case errors.Is(err, turn.ErrTurnInProgress):
		s.writeError(w, http.StatusConflict, "A reply is still being written")
		return
	case errors.Is(err, turn.ErrSessionNotReady):
		s.writeError(w, http.StatusServiceUnavailable, sessionErrorText(err))
		return
	default:
		s.logger.Error("submission failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.turns.Add(1)
	go func() {
		defer s.turns.Done()
		if err := <-done; err != nil {
			s.logger.Debug("turn failed", zap.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// sessionErrorText is the user-facing text for a session that cannot take
// submissions.
func sessionErrorText(err error) string {
	var ie *session.InitError
	if errors.As(err, &ie) {
		return ie.UserMessage()
	}
	return session.NotInitializedText
}

// ============================================================================
// WEBSOCKET HANDLER
// ============================================================================

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	first, err := json.Marshal(s.snapshot())
	if err != nil {
		s.logger.Error("encode snapshot", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := s.hub.Attach(ws, first)
	if conn == nil {
		ws.Close()
		return
	}
	conn.Serve()
}

// signal records a change without blocking the notifying goroutine.
func (s *Server) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// broadcastLoop pushes a fresh snapshot after every burst of changes.
func (s *Server) broadcastLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			data, err := json.Marshal(s.snapshot())
			if err != nil {
				s.logger.Error("encode snapshot", zap.Error(err))
				continue
			}
			s.hub.Broadcast(data)
		}
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully and waits
// for running turns to settle.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.turnCtx = gctx
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error { return s.hub.Run(gctx) })
	g.Go(func() error { return s.broadcastLoop(gctx) })
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})

	err := g.Wait()
	s.turns.Wait()
	return err
}

// Close detaches the server from the transcript and the controller.
func (s *Server) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
