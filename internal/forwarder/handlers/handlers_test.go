package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eveflow/eveflow/internal/forwarder/buffer"
	"github.com/eveflow/eveflow/internal/forwarder/stats"
	"github.com/eveflow/eveflow/internal/forwarder/tailer"
	"github.com/eveflow/eveflow/internal/models"
)

func newTestHandler(t *testing.T) (*Handler, *buffer.Buffer, *stats.DeliveryStats) {
	t.Helper()
	buf := buffer.New(10, time.Hour)
	st := stats.New()
	tl := tailer.New(tailer.Config{Path: filepath.Join(t.TempDir(), "eve.json"), Interval: time.Hour}, nil)
	return New(buf, tl, st, 10*time.Second), buf, st
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestHealth_DegradedWithoutPolling(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_OKWhileTailing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eve.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	buf := buffer.New(10, time.Hour)
	st := stats.New()
	tl := tailer.New(tailer.Config{Path: path, Interval: 5 * time.Millisecond}, nil)
	h := New(buf, tl, st, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan models.Event, 16)
	go tl.Run(ctx, events)

	require.Eventually(t, func() bool {
		return tl.Status().FileReadable
	}, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["file_readable"])
}

func TestStats_ReflectsCountersAndIsIdempotent(t *testing.T) {
	h, buf, st := newTestHandler(t)
	st.RecordForwarded(30)
	for i := 0; i < 4; i++ {
		buf.Append(models.Event{Raw: json.RawMessage(`{"event_type":"flow"}`)})
	}

	read := func() stats.Snapshot {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var snap stats.Snapshot
		decodeBody(t, rec, &snap)
		return snap
	}

	first := read()
	assert.Equal(t, uint64(30), first.TotalForwarded)
	assert.Equal(t, 4, first.Buffered)
	assert.Equal(t, uint64(0), first.ParseErrors)

	assert.Equal(t, first, read(), "stats reads must not mutate state")
}

func TestSendNow(t *testing.T) {
	h, buf, _ := newTestHandler(t)

	t.Run("empty buffer sends nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.SendNow(rec, httptest.NewRequest(http.MethodPost, "/send_now", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]int
		decodeBody(t, rec, &body)
		assert.Equal(t, 0, body["sent"])
	})

	t.Run("flushes buffered events", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			buf.Append(models.Event{Raw: json.RawMessage(`{"event_type":"flow"}`)})
		}

		rec := httptest.NewRecorder()
		h.SendNow(rec, httptest.NewRequest(http.MethodPost, "/send_now", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]int
		decodeBody(t, rec, &body)
		assert.Equal(t, 3, body["sent"])

		batch := <-buf.Batches()
		assert.Equal(t, 3, batch.Len())
	})

	t.Run("rejects GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.SendNow(rec, httptest.NewRequest(http.MethodGet, "/send_now", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
