package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eveflow/eveflow/internal/dashboard/handlers"
	"github.com/eveflow/eveflow/internal/middleware"
)

// NewRouter constructs a ServeMux with the dashboard ingest routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ingest", h.Ingest)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/stats", h.Stats)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
