package httpd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/airwave/internal/config"
	"github.com/jmylchreest/airwave/internal/observability"
)

func testServer() *Server {
	log := observability.NewLoggerWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, io.Discard)
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, log, "test")
}

func TestServer_Metrics(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "go_goroutines") ||
		strings.Contains(rr.Body.String(), "airwave"), "exposition format body")
}

func TestServer_RequestID(t *testing.T) {
	s := testServer()
	s.Router().Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestServer_OpenAPIDocs(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "airwave API")
}
