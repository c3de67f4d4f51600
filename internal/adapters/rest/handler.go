// Package rest exposes the engine's public operations over HTTP. The UI that
// consumes it lives in a separate project.
package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ewilliams-labs/resonate/internal/core/services"
	"github.com/ewilliams-labs/resonate/internal/worker"
)

// Handler manages the HTTP interface for the taste engine.
type Handler struct {
	svc    *services.Analyzer // Dependency on the Core Service
	pool   *worker.Pool       // Async listen-event processing
	router *http.ServeMux     // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Analyzer, pool *worker.Pool) *Handler {
	h := &Handler{
		svc:    svc,
		pool:   pool,
		router: http.NewServeMux(),
	}

	// Register Routes
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)
	// Engine Operations
	h.router.HandleFunc("POST /token", h.SetToken)
	h.router.HandleFunc("POST /analysis", h.AnalyzeLibrary)
	h.router.HandleFunc("DELETE /analysis", h.ClearAnalysis)
	h.router.HandleFunc("GET /tracks/{id}/recommendations", h.Recommendations)
	h.router.HandleFunc("POST /listens", h.RecordListen)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Resonate is listening 🎧"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/json")
}
