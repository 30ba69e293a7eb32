// Package handlers implements the dashboard's ingest API.
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/eveflow/eveflow/internal/auth"
	"github.com/eveflow/eveflow/internal/dashboard/aggregator"
	"github.com/eveflow/eveflow/internal/dashboard/metrics"
	"github.com/eveflow/eveflow/internal/httputil"
	"github.com/eveflow/eveflow/internal/logging"
	"github.com/eveflow/eveflow/internal/models"
)

// maxBodySize bounds ingest payloads (8 MiB).
const maxBodySize = 8 << 20

// Handler serves /ingest, /health and /stats.
type Handler struct {
	agg    *aggregator.Aggregator
	creds  auth.Credentials
	topN   int
	logger *logging.Logger
}

// New creates a Handler.
func New(agg *aggregator.Aggregator, creds auth.Credentials, topN int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{agg: agg, creds: creds, topN: topN, logger: logger}
}

// Ingest accepts a JSON array of events (or a single event object)
// and applies it to the aggregator atomically: either every event in
// the payload is counted or none is.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Authenticate before touching the payload.
	if !h.creds.Verify(r) {
		metrics.BatchesRejected.WithLabelValues("unauthorized").Inc()
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		metrics.BatchesRejected.WithLabelValues("read").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()

	events, err := decodeEvents(body)
	if err != nil {
		metrics.BatchesRejected.WithLabelValues("malformed").Inc()
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	accepted := h.agg.Add(events)
	metrics.EventsAccepted.Add(float64(accepted))

	h.logger.DebugContext(r.Context(), "batch ingested", "events", accepted)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}

// decodeEvents parses the payload as an array of event objects, or a
// single event object treated as a one-element batch. Any invalid
// element rejects the whole payload before aggregation begins.
func decodeEvents(body []byte) ([]models.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}

	switch trimmed[0] {
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, errInvalidJSON
		}
		events := make([]models.Event, 0, len(raws))
		for _, raw := range raws {
			ev, err := models.ParseEvent(raw)
			if err != nil {
				return nil, errNotObjects
			}
			events = append(events, ev)
		}
		return events, nil
	case '{':
		ev, err := models.ParseEvent(trimmed)
		if err != nil {
			return nil, errInvalidJSON
		}
		return []models.Event{ev}, nil
	default:
		return nil, errNotArray
	}
}

var (
	errEmptyBody   = jsonError("empty body")
	errInvalidJSON = jsonError("invalid JSON")
	errNotArray    = jsonError("payload must be a JSON object or array")
	errNotObjects  = jsonError("array elements must be JSON objects")
)

type jsonError string

func (e jsonError) Error() string { return string(e) }

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns the aggregation snapshot as JSON.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.agg.Snapshot(h.topN)
	// The recent ring is display-only; the JSON surface mirrors the
	// counters.
	snap.Recent = nil
	httputil.WriteJSON(w, http.StatusOK, snap)
}
