package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nimbusflow/support-agent/internal/agent"
	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
	"github.com/nimbusflow/support-agent/internal/session"
)

// MaxMessageLength bounds the accepted chat message size in bytes.
const MaxMessageLength = 8000

// TurnRunner runs one conversational turn against a session.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID uuid.UUID, userMessage string) (*agent.Response, error)
}

// ChatHandler handles the conversational turn endpoint.
type ChatHandler struct {
	runner TurnRunner
	store  *session.Store
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(runner TurnRunner, store *session.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{runner: runner, store: store, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the request body for a conversational turn.
// SessionID is optional; when empty a new session is created and its
// ID is returned in the response.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the response body for a conversational turn.
type ChatResponse struct {
	SessionID     string   `json:"session_id"`
	Message       string   `json:"message"`
	SourcesUsed   []string `json:"sources_used"`
	ToolsCalled   []string `json:"tools_called"`
	Regenerations int      `json:"regenerations"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length")
		return
	}

	var sessionID uuid.UUID
	if req.SessionID == "" {
		sessionID = h.store.Create()
	} else {
		var err error
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session_id must be a UUID")
			return
		}
	}

	resp, err := h.runner.RunTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		if isAuthError(err) {
			h.logger.Error("model credentials rejected", "session_id", sessionID)
			writeError(w, http.StatusServiceUnavailable, "model_unavailable",
				"the assistant is temporarily unavailable")
			return
		}
		h.logger.Error("turn failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:     sessionID.String(),
		Message:       resp.Text,
		SourcesUsed:   resp.SourcesUsed,
		ToolsCalled:   resp.ToolsCalled,
		Regenerations: resp.Regenerations,
	})
}

// isAuthError reports whether err is a model credential failure.
// Credential failures are the only model errors the agent surfaces.
func isAuthError(err error) bool {
	var modelErr *llm.ModelError
	return errors.As(err, &modelErr) && modelErr.Kind == llm.KindAuth
}
