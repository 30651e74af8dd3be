package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusflow/support-agent/internal/agent"
	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
	"github.com/nimbusflow/support-agent/internal/session"
	"github.com/nimbusflow/support-agent/internal/tools"
)

// stubRunner returns a canned response, or an error when err is set.
type stubRunner struct {
	resp  *agent.Response
	err   error
	calls int

	lastSessionID uuid.UUID
	lastMessage   string
}

func (s *stubRunner) RunTurn(_ context.Context, sessionID uuid.UUID, userMessage string) (*agent.Response, error) {
	s.calls++
	s.lastSessionID = sessionID
	s.lastMessage = userMessage
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubLister struct {
	descriptors []tools.Descriptor
}

func (s *stubLister) List() []tools.Descriptor { return s.descriptors }

func newTestServer(t *testing.T, runner TurnRunner) (*Server, *session.Store) {
	t.Helper()
	store := session.NewStore(session.StoreConfig{}, log.NewNop())
	lister := &stubLister{descriptors: []tools.Descriptor{
		{
			Name:        "get_pricing_info",
			Description: "Get pricing details for a plan",
			Parameters:  map[string]any{"type": "object"},
			SourceLabel: "Pricing Catalog",
		},
	}}
	return NewServer(runner, store, lister, nil, nil, log.NewNop()), store
}

func TestChatCreatesSessionWhenOmitted(t *testing.T) {
	runner := &stubRunner{resp: &agent.Response{
		Text:        "Our Starter plan is $12/month.",
		SourcesUsed: []string{"Pricing Catalog"},
		ToolsCalled: []string{"get_pricing_info"},
	}}
	srv, _ := newTestServer(t, runner)

	body := bytes.NewBufferString(`{"message": "How much is Starter?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Our Starter plan is $12/month.", resp.Message)
	assert.Equal(t, []string{"Pricing Catalog"}, resp.SourcesUsed)
	assert.Equal(t, []string{"get_pricing_info"}, resp.ToolsCalled)

	// A fresh session ID was minted and passed through to the agent.
	id, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, id, runner.lastSessionID)
	assert.Equal(t, "How much is Starter?", runner.lastMessage)
}

func TestChatReusesProvidedSession(t *testing.T) {
	runner := &stubRunner{resp: &agent.Response{Text: "Hello again!"}}
	srv, store := newTestServer(t, runner)
	id := store.Create()

	body := bytes.NewBufferString(`{"session_id": "` + id.String() + `", "message": "hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, runner.lastSessionID)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, id.String(), resp.SessionID)
}

func TestChatRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{"message":`},
		{name: "bad session id", body: `{"session_id": "not-a-uuid", "message": "hi"}`},
		{name: "oversized message", body: `{"message": "` + strings.Repeat("a", MaxMessageLength+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{resp: &agent.Response{Text: "unused"}}
			srv, _ := newTestServer(t, runner)

			req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, runner.calls)
		})
	}
}

func TestChatAuthErrorMapsTo503(t *testing.T) {
	runner := &stubRunner{err: &llm.ModelError{Kind: llm.KindAuth, Err: errors.New("401")}}
	srv, _ := newTestServer(t, runner)

	body := bytes.NewBufferString(`{"message": "hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "model_unavailable", resp.Error)
	// The concrete credential failure must not leak to the client.
	assert.NotContains(t, resp.Message, "401")
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	runner := &stubRunner{resp: &agent.Response{Text: "ok"}}
	srv, store := newTestServer(t, runner)
	handler := srv.Handler()

	// Create.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateSessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	id, err := uuid.Parse(created.SessionID)
	require.NoError(t, err)

	// Seed a turn directly so history has content.
	require.NoError(t, store.AppendTurn(id, session.Turn{
		User:      llm.UserMessage("hello"),
		Assistant: llm.AssistantMessage("Hello! How can I help?"),
	}))
	require.NoError(t, store.SetCustomerName(id, "Alex"))

	// History.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var hist HistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	assert.Equal(t, "Alex", hist.CustomerName)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, llm.RoleUser, hist.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, hist.Messages[1].Role)

	// Clear.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/"+created.SessionID+"/clear", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	hist = HistoryResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	assert.Empty(t, hist.Messages)
}

func TestSessionEndpointsRejectUnknownOrInvalidIDs(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{resp: &agent.Response{Text: "ok"}})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/not-a-uuid/history", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unknown := uuid.New().String()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+unknown+"/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/"+unknown+"/clear", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToolCatalogEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{resp: &agent.Response{Text: "ok"}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ToolsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "get_pricing_info", resp.Tools[0].Name)
	assert.Equal(t, "Pricing Catalog", resp.Tools[0].Source)
}

func TestReadinessWithoutPool(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{resp: &agent.Response{Text: "ok"}})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	runner := &stubRunner{resp: &agent.Response{Text: "ok"}}
	store := session.NewStore(session.StoreConfig{}, log.NewNop())
	srv := NewServer(runner, store, &stubLister{}, nil, []string{"https://app.nimbusflow.io"}, log.NewNop())
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.nimbusflow.io")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.nimbusflow.io", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	handler := chain(mux, recoveryMiddleware(log.NewNop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
