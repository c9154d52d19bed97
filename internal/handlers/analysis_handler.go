package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/analysis"
	"github.com/ternarybob/marketlens/internal/services/export"
)

// AnalysisHandler runs analyses and exports the latest report
type AnalysisHandler struct {
	session *analysis.Session
	export  *export.Service
	logger  arbor.ILogger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(session *analysis.Session, exportService *export.Service, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{session: session, export: exportService, logger: logger}
}

// AnalysisRoute handles POST (run on the current selection) and GET
// (latest report and in-progress flag) on /api/analysis
func (h *AnalysisHandler) AnalysisRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, h.session.Status())

	case http.MethodPost:
		var req struct {
			Variant string `json:"variant"`
			Model   string `json:"model"`
		}
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		variant := h.session.DefaultVariant()
		if req.Variant != "" {
			parsed, err := models.ParseVariant(req.Variant)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			variant = parsed
		}

		report, err := h.session.Run(r.Context(), variant, req.Model)
		if err != nil {
			WriteServiceError(w, h.logger, err, "Analysis failed")
			return
		}
		WriteJSON(w, http.StatusOK, report)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ExportHandler handles GET /api/analysis/export?format=md|pdf|xlsx|png-pdf
func (h *AnalysisHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteServiceError(w, h.logger, err, "Invalid export format")
		return
	}

	doc, err := h.export.Export(r.Context(), h.session.Latest(), format)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Export failed")
		return
	}

	w.Header().Set("Content-Type", doc.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}
