package api

import (
	"net/http"

	"github.com/nimbusflow/support-agent/internal/tools"
)

// ToolLister exposes the registered tool catalog.
type ToolLister interface {
	List() []tools.Descriptor
}

// ToolsHandler handles the tool catalog endpoint.
type ToolsHandler struct {
	lister ToolLister
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(lister ToolLister) *ToolsHandler {
	return &ToolsHandler{lister: lister}
}

// RegisterRoutes registers tool routes on the given mux.
func (h *ToolsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tools", h.list)
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Source      string         `json:"source,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolsResponse is the response body for the tool catalog endpoint.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
	Total int        `json:"total"`
}

func (h *ToolsHandler) list(w http.ResponseWriter, _ *http.Request) {
	descriptors := h.lister.List()
	resp := ToolsResponse{Tools: make([]ToolInfo, 0, len(descriptors)), Total: len(descriptors)}
	for _, d := range descriptors {
		resp.Tools = append(resp.Tools, ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			Source:      d.SourceLabel,
			Parameters:  d.Parameters,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
