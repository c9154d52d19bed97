package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	a := s.app

	// WebSocket route
	mux.HandleFunc("/ws", a.WSHandler.HandleWebSocket)

	// API routes - Files
	mux.HandleFunc("/api/files", s.handleFilesRoute)                     // GET (list), POST (upload)
	mux.HandleFunc("/api/files/delete", a.FileHandler.BulkDeleteHandler) // POST - bulk delete
	mux.HandleFunc("/api/files/", a.FileHandler.FileRoutes)              // GET/DELETE /{id}, GET /{id}/preview
	mux.HandleFunc("/blobs/", a.FileHandler.BlobHandler)                 // GET /{ref}

	// API routes - Selection
	mux.HandleFunc("/api/selection", a.SelectionHandler.SelectionRoute)              // GET, PUT, DELETE
	mux.HandleFunc("/api/selection/toggle", a.SelectionHandler.ToggleHandler)        // POST
	mux.HandleFunc("/api/selection/toggle-all", a.SelectionHandler.ToggleAllHandler) // POST

	// API routes - Customers
	mux.HandleFunc("/api/customers", a.CustomerHandler.CollectionRoute) // GET (list), POST (create)
	mux.HandleFunc("/api/customers/", a.CustomerHandler.ItemRoutes)     // GET/PUT/DELETE /{id}, POST /{id}/toggle

	// API routes - Analysis
	mux.HandleFunc("/api/analysis", a.AnalysisHandler.AnalysisRoute)        // GET (status), POST (run)
	mux.HandleFunc("/api/analysis/export", a.AnalysisHandler.ExportHandler) // GET ?format=

	// API routes - Settings
	mux.HandleFunc("/api/kv", a.KVHandler.ListHandler) // GET
	mux.HandleFunc("/api/kv/", a.KVHandler.KeyRoutes)  // PUT/DELETE /{key}

	// API routes - System
	mux.HandleFunc("/api/stats", a.APIHandler.StatsHandler)
	mux.HandleFunc("/api/version", a.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", a.APIHandler.HealthHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", a.APIHandler.NotFoundHandler)

	return mux
}

// handleFilesRoute routes /api/files by method
func (s *Server) handleFilesRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.FileHandler.ListHandler, s.app.FileHandler.UploadHandler)
}
