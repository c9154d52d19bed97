package handlers

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/services/analysis"
	"github.com/ternarybob/marketlens/internal/services/registry"
)

// APIHandler serves system endpoints
type APIHandler struct {
	files     *registry.Files
	customers *registry.Customers
	session   *analysis.Session
	blobs     interfaces.BlobStore
	started   time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates a new system handler
func NewAPIHandler(files *registry.Files, customers *registry.Customers, session *analysis.Session, blobs interfaces.BlobStore, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		files:     files,
		customers: customers,
		session:   session,
		blobs:     blobs,
		started:   time.Now(),
		logger:    logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": humanize.RelTime(h.started, time.Now(), "", ""),
	})
}

// StatsHandler returns registry and session statistics
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats := h.files.Stats()
	status := h.session.Status()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files":               stats,
		"total_size":          humanize.IBytes(uint64(stats.TotalBytes)),
		"customers":           len(h.customers.List()),
		"selected_customers":  len(h.customers.Selected()),
		"live_references":     h.blobs.Len(),
		"analysis_running":    status.InProgress,
		"has_analysis_result": status.Latest != nil,
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"status": "error",
		"error":  "Not Found",
		"path":   r.URL.Path,
	})
}
