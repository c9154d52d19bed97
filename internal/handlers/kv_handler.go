package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/interfaces"
)

// KVHandler manages stored settings such as provider API keys
type KVHandler struct {
	kv       interfaces.KeyValueStorage
	onChange func()
	logger   arbor.ILogger
}

// NewKVHandler creates a new KV handler. onChange runs after every write so
// cached clients can pick up new credentials.
func NewKVHandler(kv interfaces.KeyValueStorage, onChange func(), logger arbor.ILogger) *KVHandler {
	return &KVHandler{kv: kv, onChange: onChange, logger: logger}
}

// ListHandler handles GET /api/kv. Values are masked.
func (h *KVHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pairs, err := h.kv.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	out := make([]map[string]interface{}, len(pairs))
	for i, pair := range pairs {
		out[i] = map[string]interface{}{
			"key":         pair.Key,
			"value":       maskValue(pair.Value),
			"description": pair.Description,
			"updated_at":  pair.UpdatedAt,
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

// KeyRoutes handles PUT and DELETE on /api/kv/{key}
func (h *KVHandler) KeyRoutes(w http.ResponseWriter, r *http.Request) {
	key, _ := pathParam(r, "/api/kv/")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Value       string `json:"value"`
			Description string `json:"description"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Value == "" {
			WriteError(w, http.StatusBadRequest, "Value is required")
			return
		}
		if err := h.kv.Set(r.Context(), key, req.Value, req.Description); err != nil {
			h.logger.Error().Err(err).Str("key", key).Msg("Failed to store key/value pair")
			WriteError(w, http.StatusInternalServerError, "Failed to store key/value pair")
			return
		}
		h.changed()
		h.logger.Info().Str("key", key).Msg("Key/value pair stored")
		WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "key": key})

	case http.MethodDelete:
		if err := h.kv.Delete(r.Context(), key); err != nil {
			if errors.Is(err, interfaces.ErrKeyNotFound) {
				WriteError(w, http.StatusNotFound, "Key not found")
				return
			}
			h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
			WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
			return
		}
		h.changed()
		WriteSuccess(w, "Key/value pair deleted")

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *KVHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// maskValue keeps the first and last four characters of long values
func maskValue(value string) string {
	if len(value) < 8 {
		return "••••••••"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
