// Package handlers exposes the forwarder's stats and control surface.
package handlers

import (
	"net/http"
	"time"

	"github.com/eveflow/eveflow/internal/forwarder/buffer"
	"github.com/eveflow/eveflow/internal/forwarder/stats"
	"github.com/eveflow/eveflow/internal/forwarder/tailer"
	"github.com/eveflow/eveflow/internal/httputil"
)

// Handler serves /health, /stats and /send_now. It is a thin accessor
// layer over the pipeline's synchronized state.
type Handler struct {
	buf       *buffer.Buffer
	tail      *tailer.Tailer
	stats     *stats.DeliveryStats
	staleness time.Duration
}

// New creates a Handler.
func New(buf *buffer.Buffer, tail *tailer.Tailer, st *stats.DeliveryStats, staleness time.Duration) *Handler {
	return &Handler{buf: buf, tail: tail, stats: st, staleness: staleness}
}

// Health reports liveness: the target file is readable and the tailer
// polled recently.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ts := h.tail.Status()
	healthy := ts.FileReadable && time.Since(ts.LastPoll) < h.staleness

	status := http.StatusOK
	body := map[string]any{
		"status":        "ok",
		"file_readable": ts.FileReadable,
		"last_poll":     ts.LastPoll,
	}
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	httputil.WriteJSON(w, status, body)
}

// Stats returns the cumulative delivery counters. Without an
// intervening flush, repeated calls return an unchanged snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot(h.buf.Buffered())
	snap.ParseErrors = h.tail.Status().ParseErrors
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// SendNow flushes up to one batch of buffered events immediately and
// returns the count handed to the dispatcher. An empty buffer sends
// nothing and returns 0.
func (h *Handler) SendNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent := h.buf.FlushNow()
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
