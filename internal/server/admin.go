// admin.go - Operator endpoints served on a separate listener so the public
// route table stays limited to the index page and the upload endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultRecentUploads = 50
	maxRecentUploads     = 500
)

func (s *Server) adminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(middleware.Compress(5, "application/json", "text/plain"))

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/uploads", s.handleRecentUploads)
	return r
}

// handleRecentUploads lists ledger rows, newest first. ?limit=N caps the
// result (default 50, max 500).
func (s *Server) handleRecentUploads(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upload ledger disabled"})
		return
	}

	limit := defaultRecentUploads
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentUploads)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := s.ledger.Recent(ctx, limit)
	if err != nil {
		s.log.Error("ledger_query_failed", map[string]interface{}{
			"rid": RequestIDFromContext(r.Context()),
		}, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger query failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploads": records,
		"count":   len(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
