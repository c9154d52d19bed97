package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/analysis"
	"github.com/ternarybob/marketlens/internal/services/export"
	"github.com/ternarybob/marketlens/internal/services/ingest"
	"github.com/ternarybob/marketlens/internal/services/registry"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// StatusFor maps a service error onto an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, export.ErrNoReport):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrNothingSelected),
		errors.Is(err, analysis.ErrNoCustomersSelected),
		errors.Is(err, registry.ErrInvalidCustomer),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrAnalysisInProgress):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrCredentialsNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, analysis.ErrAnalysisFailed),
		errors.Is(err, analysis.ErrMalformedReply):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError logs err and writes it with the status StatusFor picks.
// Internal errors are reported with a generic message.
func WriteServiceError(w http.ResponseWriter, logger arbor.ILogger, err error, message string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg(message)
		WriteError(w, status, message)
		return
	}
	logger.Warn().Err(err).Int("status", status).Msg(message)
	WriteError(w, status, err.Error())
}

var errInvalidRequest = errors.New("invalid request")

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errInvalidRequest, err)
	}
	return nil
}

// pathParam returns the URL-decoded path segment following prefix, stopping
// at the next slash, and the remainder after it
func pathParam(r *http.Request, prefix string) (string, string) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	param, tail, _ := strings.Cut(rest, "/")
	if decoded, err := url.PathUnescape(param); err == nil {
		param = decoded
	}
	return param, tail
}

// listOptions reads q, sort and order from the query string
func listOptions(r *http.Request) registry.ListOptions {
	query := r.URL.Query()
	return registry.ListOptions{
		Query: query.Get("q"),
		Sort:  models.ParseSortField(query.Get("sort")),
		Order: models.ParseSortOrder(query.Get("order")),
	}
}
