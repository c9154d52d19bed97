package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/services/registry"
)

// SelectionHandler serves the file selection set
type SelectionHandler struct {
	files  *registry.Files
	logger arbor.ILogger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(files *registry.Files, logger arbor.ILogger) *SelectionHandler {
	return &SelectionHandler{files: files, logger: logger}
}

func (h *SelectionHandler) writeSelection(w http.ResponseWriter, extra map[string]interface{}) {
	ids := h.files.SelectedIDs()
	body := map[string]interface{}{
		"ids":   ids,
		"count": len(ids),
	}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// SelectionRoute handles GET (current selection), PUT (replace) and DELETE (clear) on /api/selection
func (h *SelectionHandler) SelectionRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeSelection(w, nil)

	case http.MethodPut:
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := h.files.Select(r.Context(), req.IDs...); err != nil {
			WriteServiceError(w, h.logger, err, "Failed to set selection")
			return
		}
		h.writeSelection(w, nil)

	case http.MethodDelete:
		h.files.ClearSelection(r.Context())
		h.writeSelection(w, nil)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ToggleHandler handles POST /api/selection/toggle {"id": "..."}
func (h *SelectionHandler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ID == "" {
		WriteError(w, http.StatusBadRequest, "File id is required")
		return
	}

	selected, err := h.files.Toggle(r.Context(), req.ID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to toggle selection")
		return
	}
	h.writeSelection(w, map[string]interface{}{"id": req.ID, "selected": selected})
}

// ToggleAllHandler handles POST /api/selection/toggle-all. The optional
// "q" filter decides which records are visible.
func (h *SelectionHandler) ToggleAllHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Query string `json:"q"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	opts := listOptions(r)
	if req.Query != "" {
		opts.Query = req.Query
	}

	h.files.ToggleAll(r.Context(), opts)
	h.writeSelection(w, nil)
}
