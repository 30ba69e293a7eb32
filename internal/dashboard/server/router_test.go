package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eveflow/eveflow/internal/auth"
	"github.com/eveflow/eveflow/internal/dashboard/aggregator"
	"github.com/eveflow/eveflow/internal/dashboard/handlers"
)

func testRouter() http.Handler {
	h := handlers.New(aggregator.New(100), auth.Credentials{}, 10, nil)
	return NewRouter(h)
}

func TestRouter_Routes(t *testing.T) {
	router := testRouter()

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/ingest", `[{"event_type":"flow"}]`, http.StatusOK},
		{http.MethodGet, "/ingest", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/stats", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
