package handlers

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/ingest"
	"github.com/ternarybob/marketlens/internal/services/registry"
)

const maxUploadMemory = 32 << 20

// FileView is a file record as listed to the UI. Content is only returned
// by the single-record endpoint.
type FileView struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Size        int64                  `json:"size"`
	SizeHuman   string                 `json:"size_human"`
	MediaType   string                 `json:"media_type"`
	UploadedAt  time.Time              `json:"uploaded_at"`
	Preview     models.PreviewCategory `json:"preview"`
	PreviewPath string                 `json:"preview_path"`
	BlobPath    string                 `json:"blob_path,omitempty"`
	PageCount   int                    `json:"page_count,omitempty"`
	Selected    bool                   `json:"selected"`
}

func newFileView(record models.FileRecord, selected bool) FileView {
	view := FileView{
		ID:          record.ID,
		Name:        record.Name,
		Size:        record.Size,
		SizeHuman:   humanize.IBytes(uint64(record.Size)),
		MediaType:   record.MediaType,
		UploadedAt:  record.UploadedAt,
		Preview:     record.Preview,
		PreviewPath: "/api/files/" + record.ID + "/preview",
		PageCount:   record.PageCount,
		Selected:    selected,
	}
	if record.BlobRef != "" {
		view.BlobPath = "/blobs/" + record.BlobRef
	}
	return view
}

// FileHandler serves the file registry
type FileHandler struct {
	files  *registry.Files
	ingest *ingest.Service
	blobs  interfaces.BlobStore
	logger arbor.ILogger
}

// NewFileHandler creates a new file handler
func NewFileHandler(files *registry.Files, ingestService *ingest.Service, blobs interfaces.BlobStore, logger arbor.ILogger) *FileHandler {
	return &FileHandler{
		files:  files,
		ingest: ingestService,
		blobs:  blobs,
		logger: logger,
	}
}

func (h *FileHandler) views(records []models.FileRecord) []FileView {
	views := make([]FileView, len(records))
	for i, record := range records {
		views[i] = newFileView(record, h.files.IsSelected(record.ID))
	}
	return views
}

// ListHandler handles GET /api/files?q=&sort=&order=
func (h *FileHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	records := h.files.List(listOptions(r))
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files": h.views(records),
		"count": len(records),
		"stats": h.files.Stats(),
	})
}

// UploadHandler handles POST /api/files (multipart, "files" fields).
// Each file is read independently; failures are reported next to the
// records that were added.
func (h *FileHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	sources := make([]ingest.Source, len(headers))
	for i, header := range headers {
		sources[i] = ingest.FromMultipart(header)
	}

	result := h.ingest.IngestBatch(r.Context(), sources)
	if len(result.Records) > 0 {
		if err := h.files.Add(r.Context(), result.Records...); err != nil {
			WriteServiceError(w, h.logger, err, "Failed to store uploaded files")
			return
		}
	}

	failures := make([]map[string]string, len(result.Failures))
	for i, failure := range result.Failures {
		failures[i] = map[string]string{"name": failure.Name, "error": failure.Err.Error()}
	}

	status := http.StatusCreated
	if len(result.Records) == 0 {
		status = http.StatusBadRequest
	}

	h.logger.Info().
		Int("added", len(result.Records)).
		Int("failed", len(result.Failures)).
		Msg("Files uploaded")

	WriteJSON(w, status, map[string]interface{}{
		"files":    h.views(result.Records),
		"failures": failures,
	})
}

// FileRoutes handles /api/files/{id} and /api/files/{id}/preview
func (h *FileHandler) FileRoutes(w http.ResponseWriter, r *http.Request) {
	id, tail := pathParam(r, "/api/files/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing file id")
		return
	}

	switch {
	case tail == "preview":
		h.previewHandler(w, r, id)
	case tail != "":
		WriteError(w, http.StatusNotFound, "Unknown file route")
	case r.Method == http.MethodGet:
		h.getHandler(w, r, id)
	case r.Method == http.MethodDelete:
		h.deleteHandler(w, r, id)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *FileHandler) getHandler(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.files.Get(id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to get file")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"file":     record,
		"selected": h.files.IsSelected(id),
	})
}

func (h *FileHandler) deleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := h.files.Remove(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to delete file")
		return
	}
	if len(removed) == 0 {
		WriteError(w, http.StatusNotFound, "File not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// previewHandler writes the raw content of a record: the live blob when one
// exists, the text itself, or the decoded data URL
func (h *FileHandler) previewHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	record, err := h.files.Get(id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to get file")
		return
	}

	if record.BlobRef != "" {
		if mediaType, data, ok := h.blobs.Get(record.BlobRef); ok {
			writeRaw(w, mediaType, data)
			return
		}
	}

	if record.Preview == models.PreviewText {
		writeRaw(w, "text/plain; charset=utf-8", []byte(record.Content))
		return
	}

	mediaType, data, err := ingest.DecodeDataURL(record.Content)
	if err != nil {
		WriteError(w, http.StatusNotFound, "No preview available")
		return
	}
	writeRaw(w, mediaType, data)
}

// BulkDeleteHandler handles POST /api/files/delete. Without ids the current
// selection is removed.
func (h *FileHandler) BulkDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ids := req.IDs
	if len(ids) == 0 {
		ids = h.files.SelectedIDs()
	}

	removed, err := h.files.Remove(r.Context(), ids...)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to delete files")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// BlobHandler handles GET /blobs/{ref}
func (h *FileHandler) BlobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ref, _ := pathParam(r, "/blobs/")
	mediaType, data, ok := h.blobs.Get(ref)
	if !ok {
		WriteError(w, http.StatusNotFound, "Reference released or unknown")
		return
	}
	writeRaw(w, mediaType, data)
}

func writeRaw(w http.ResponseWriter, mediaType string, data []byte) {
	if mediaType == "" {
		mediaType = models.DefaultMediaType
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
