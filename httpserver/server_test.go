package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/identity-registry/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(api.NewHTTPServerConfig("127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil))), nil, pingHandler{})
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	return w.Code, string(body)
}

// TestServer_Routes tests that registered handlers and health endpoints are served
func TestServer_Routes(t *testing.T) {
	h := newTestServer(t).Handler()

	code, body := get(t, h, "/api/ping")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", body)

	code, body = get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"alive"}`, body)

	code, _ = get(t, h, "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, code)
}

// TestServer_Drain tests readiness toggling through drain and undrain
func TestServer_Drain(t *testing.T) {
	h := newTestServer(t).Handler()

	code, _ := get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)

	_, body := get(t, h, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, body)
	_, body = get(t, h, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	code, body = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"not ready"}`, body)

	_, body = get(t, h, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, body)
	_, body = get(t, h, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, body)

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

// TestServer_Config tests that the default timeouts and pprof switch reach the server
func TestServer_Config(t *testing.T) {
	cfg := api.NewHTTPServerConfig("127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg.EnablePprof = true
	srv := New(cfg, nil, pingHandler{})

	assert.Equal(t, api.DefaultReadTimeout, srv.srv.ReadTimeout)
	assert.Equal(t, api.DefaultWriteTimeout, srv.srv.WriteTimeout)
	assert.Equal(t, "127.0.0.1:0", srv.srv.Addr)

	code, _ := get(t, srv.Handler(), "/debug/pprof/")
	assert.Equal(t, http.StatusOK, code)
}
