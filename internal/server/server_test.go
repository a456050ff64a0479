// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jeranaias/codeai-tui/internal/curriculum"
	"github.com/jeranaias/codeai-tui/internal/export"
	"github.com/jeranaias/codeai-tui/internal/model"
	"github.com/jeranaias/codeai-tui/internal/session"
	"github.com/jeranaias/codeai-tui/internal/session/sessiontest"
	"github.com/jeranaias/codeai-tui/internal/turn"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, which starts its view worker at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// =============================================================================
// TEST HELPERS
// =============================================================================

func newServerWith(t *testing.T, mgr *session.Manager) *Server {
	t.Helper()
	s := New(Options{
		Addr:       "127.0.0.1:0",
		Manager:    mgr,
		Controller: turn.New(model.NewTranscript(), mgr, nil),
	})
	t.Cleanup(func() {
		s.turns.Wait()
		s.Close()
	})
	return s
}

func newServer(t *testing.T, replies ...sessiontest.Reply) (*Server, *sessiontest.Session) {
	t.Helper()
	sess := sessiontest.NewSession(replies...)
	return newServerWith(t, sessiontest.ReadyManager(sess)), sess
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" || method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}](t, rec)
	assert.Equal(t, rec.Code, body.Error.Code)
	return body.Error.Message
}

// =============================================================================
// PAGE AND HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "ready", h.Session)
	assert.Equal(t, "scripted", h.Backend)
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self'")
	assert.NotContains(t, csp, "unsafe-inline")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestIndexPage(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	page := rec.Body.String()
	assert.Contains(t, page, "<title>CodeAI</title>")
	assert.Contains(t, page, "Learn Python, Java, C, C&#43;&#43;, R")
	assert.Contains(t, page, Placeholder)
	assert.Contains(t, page, "<strong>CodeAI</strong>")
	assert.Contains(t, page, `<script src="/static/app.js" defer></script>`)
	assert.NotContains(t, page, "<script>")
}

func TestStaticAssets(t *testing.T) {
	s, _ := newServer(t)

	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		rec := do(t, s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/nope", "").Code)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestPostMessage(t *testing.T) {
	s, sess := newServer(t, sessiontest.Reply{Fragments: []string{"Hello", ", ", "world"}})

	rec := do(t, s, http.MethodPost, "/api/messages", `{"text":"  hi  "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.turns.Wait()

	assert.Equal(t, []string{"hi"}, sess.Prompts())

	snap := decode[Snapshot](t, do(t, s, http.MethodGet, "/api/transcript", ""))
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "user", snap.Messages[0].Role)
	assert.Equal(t, "model", snap.Messages[1].Role)
	assert.Equal(t, "Hello, world", snap.Messages[1].Text)
	assert.Contains(t, snap.Messages[1].HTML, "Hello, world")
	assert.False(t, snap.Busy)
	assert.Equal(t, "ready", snap.Session)
}

func TestPostMessage_Refusals(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s, _ := newServer(t)
		rec := do(t, s, http.MethodPost, "/api/messages", `{"text":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Message is empty", errorMessage(t, rec))
	})

	t.Run("malformed", func(t *testing.T) {
		s, _ := newServer(t)
		rec := do(t, s, http.MethodPost, "/api/messages", `{"text":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		s, _ := newServer(t)
		body := `{"text":"` + strings.Repeat("a", MaxRequestBodySize) + `"}`
		rec := do(t, s, http.MethodPost, "/api/messages", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("busy", func(t *testing.T) {
		hold := make(chan struct{})
		s, sess := newServer(t, sessiontest.Reply{Fragments: []string{"a"}, Hold: hold})

		require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/messages", `{"text":"first"}`).Code)
		rec := do(t, s, http.MethodPost, "/api/messages", `{"text":"second"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)

		close(hold)
		s.turns.Wait()
		assert.Equal(t, []string{"first"}, sess.Prompts())
	})

	t.Run("not initialized", func(t *testing.T) {
		mgr := session.NewManager(&sessiontest.Backend{Session: sessiontest.NewSession()}, nil)
		s := newServerWith(t, mgr)
		rec := do(t, s, http.MethodPost, "/api/messages", `{"text":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, session.NotInitializedText, errorMessage(t, rec))
	})

	t.Run("init failed", func(t *testing.T) {
		mgr := session.NewManager(&sessiontest.Backend{Err: errors.New("API key not valid")}, nil)
		_, err := mgr.Initialize(context.Background(), "", "")
		require.Error(t, err)

		s := newServerWith(t, mgr)
		rec := do(t, s, http.MethodPost, "/api/messages", `{"text":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, session.InitFailedText, errorMessage(t, rec))
		assert.NotContains(t, rec.Body.String(), "API key not valid")

		snap := decode[Snapshot](t, do(t, s, http.MethodGet, "/api/transcript", ""))
		assert.Equal(t, "failed", snap.Session)
		assert.Equal(t, session.InitFailedText, snap.SessionError)
	})
}

func TestStreamFailureSurfacesError(t *testing.T) {
	s, _ := newServer(t, sessiontest.Reply{Fragments: []string{"Par"}, Err: errors.New("boom")})

	require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/messages", `{"text":"explain loops"}`).Code)
	s.turns.Wait()

	snap := decode[Snapshot](t, do(t, s, http.MethodGet, "/api/transcript", ""))
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "explain loops", snap.Messages[0].Text)
	assert.Equal(t, turn.StreamFailedText, snap.Error)
}

// =============================================================================
// RENDERING
// =============================================================================

func TestTranscriptHTML(t *testing.T) {
	reply := "**bold** <img src=x onerror=alert(1)>\n\n<script>alert(1)</script>\n\n" +
		`<details class="hint-details"><summary>Need a Hint?</summary>Use a loop.</details>`
	s, _ := newServer(t, sessiontest.Reply{Fragments: []string{reply}})

	require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/messages", `{"text":"<b>hi</b> **there**"}`).Code)
	s.turns.Wait()

	snap := decode[Snapshot](t, do(t, s, http.MethodGet, "/api/transcript", ""))
	require.Len(t, snap.Messages, 2)

	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt; **there**", snap.Messages[0].HTML)

	reply = snap.Messages[1].HTML
	assert.NotContains(t, reply, "<script")
	assert.NotContains(t, reply, "onerror")
	assert.Contains(t, reply, "<strong>bold</strong>")
	assert.Contains(t, reply, `<details class="hint-details">`)
	assert.Contains(t, reply, "<summary>Need a Hint?</summary>")
}

// =============================================================================
// HISTORY AND TOPICS
// =============================================================================

func TestHistory(t *testing.T) {
	s, _ := newServer(t,
		sessiontest.Reply{Fragments: []string{"one"}},
		sessiontest.Reply{Fragments: []string{"two"}},
	)

	h := decode[HistoryResponse](t, do(t, s, http.MethodGet, "/api/history", ""))
	assert.Empty(t, h.History)
	assert.NotNil(t, h.History)

	for _, text := range []string{"first", "second"} {
		require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/messages", `{"text":"`+text+`"}`).Code)
		s.turns.Wait()
	}

	h = decode[HistoryResponse](t, do(t, s, http.MethodGet, "/api/history", ""))
	assert.Equal(t, []string{"second", "first"}, h.History)
}

func TestExport(t *testing.T) {
	s, _ := newServer(t, sessiontest.Reply{Fragments: []string{"Use **print**."}})

	rec := do(t, s, http.MethodGet, "/api/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Nothing to export yet", errorMessage(t, rec))

	require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/messages", `{"text":"<b>hi</b>"}`).Code)
	s.turns.Wait()

	rec = do(t, s, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="codeai_`)
	assert.Contains(t, rec.Body.String(), "Use **print**.")

	rec = do(t, s, http.MethodGet, "/api/export?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[export.Document](t, rec)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "CodeAI", doc.Title)

	rec = do(t, s, http.MethodGet, "/api/export?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `.html"`)
	assert.Contains(t, rec.Body.String(), "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, rec.Body.String(), "<strong>print</strong>")

	rec = do(t, s, http.MethodGet, "/api/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown export format", errorMessage(t, rec))
}

func TestTopics(t *testing.T) {
	s, sess := newServer(t, sessiontest.Reply{Fragments: []string{"Lesson 1"}})

	topics := decode[TopicsResponse](t, do(t, s, http.MethodGet, "/api/topics", ""))
	assert.Equal(t, "CodeAI", topics.Title)
	var names []string
	for _, tp := range topics.Topics {
		names = append(names, tp.Name)
	}
	assert.Equal(t, []string{"Python", "Java", "C", "C++", "R"}, names)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/topics/Cobol", "").Code)

	require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/topics/python", "").Code)
	s.turns.Wait()
	assert.Equal(t, []string{curriculum.PromptFor("Python")}, sess.Prompts())
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestSameOrigin_RejectsCrossSiteSubmissions(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		origin      string
		wantStatus  int
	}{
		{"plain text form", "/api/messages", "text/plain", "", http.StatusUnsupportedMediaType},
		{"url encoded form", "/api/messages", "application/x-www-form-urlencoded", "", http.StatusUnsupportedMediaType},
		{"missing content type", "/api/topics/python", "", "", http.StatusUnsupportedMediaType},
		{"foreign origin", "/api/messages", "application/json", "http://evil.example", http.StatusForbidden},
		{"foreign origin plain text", "/api/messages", "text/plain", "http://evil.example", http.StatusForbidden},
		{"null origin", "/api/topics/python", "application/json", "null", http.StatusForbidden},
		{"same origin", "/api/messages", "application/json; charset=utf-8", "http://example.com", http.StatusAccepted},
		{"no origin", "/api/messages", "application/json", "", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newServer(t, sessiontest.Reply{Fragments: []string{"ok"}})

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"text":"hi"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			s.turns.Wait()

			assert.Equal(t, tt.wantStatus, rec.Code)
			want := 0
			if tt.wantStatus == http.StatusAccepted {
				want = 2
			}
			assert.Equal(t, want, s.controller.Transcript().Len())
		})
	}
}

func TestSameOrigin_AllowsReads(t *testing.T) {
	s, _ := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/transcript", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(RecoveryMiddleware(nopLogger()))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

// =============================================================================
// WEBSOCKET
// =============================================================================

func TestWebSocketPushesSnapshots(t *testing.T) {
	s, _ := newServer(t, sessiontest.Reply{Fragments: []string{"Hello", ", ", "world"}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		require.NoError(t, <-served)
	}()

	base := "http://" + ln.Addr().String()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap Snapshot
	require.NoError(t, ws.ReadJSON(&snap))
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "ready", snap.Session)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Post(base+"/api/messages", "application/json", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	for {
		require.NoError(t, ws.ReadJSON(&snap))
		if len(snap.Messages) == 2 && !snap.Busy && snap.Messages[1].Text == "Hello, world" {
			break
		}
	}
	assert.Equal(t, "hi", snap.Messages[0].Text)
}

func nopLogger() *zap.Logger { return zap.NewNop() }
