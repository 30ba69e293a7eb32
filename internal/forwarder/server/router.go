package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eveflow/eveflow/internal/forwarder/handlers"
	"github.com/eveflow/eveflow/internal/middleware"
)

// NewRouter constructs a ServeMux with the forwarder control routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/stats", h.Stats)
	mux.HandleFunc("/send_now", h.SendNow)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
