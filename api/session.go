package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nimbusflow/support-agent/internal/log"
	"github.com/nimbusflow/support-agent/internal/session"
)

// SessionHandler handles session management endpoints.
type SessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/{id}/history", h.history)
	mux.HandleFunc("POST /api/sessions/{id}/clear", h.clear)
}

// CreateSessionResponse is the response body for session creation.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (h *SessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	id := h.store.Create()
	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: id.String()})
}

// HistoryMessage is one transcript entry in a history response.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse is the response body for the history endpoint.
type HistoryResponse struct {
	SessionID    string           `json:"session_id"`
	CustomerName string           `json:"customer_name,omitempty"`
	Messages     []HistoryMessage `json:"messages"`
}

func (h *SessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	messages, err := h.store.History(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no such session")
			return
		}
		h.logger.Error("failed to load history", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		return
	}

	resp := HistoryResponse{
		SessionID:    id.String(),
		CustomerName: h.store.CustomerName(id),
		Messages:     make([]HistoryMessage, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, HistoryMessage{Role: m.Role, Content: m.Content})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.store.Clear(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no such session")
			return
		}
		h.logger.Error("failed to clear session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionID parses the {id} path value, writing a 400 on failure.
func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
