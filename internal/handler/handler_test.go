package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byom-labs/byom-chat/pkg/logger"
)

func TestHealthzAlwaysOK(t *testing.T) {
	h := NewHealthHandler(time.Now().Add(-3 * time.Second))

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		OK     bool    `json:"ok"`
		Uptime float64 `json:"uptime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.GreaterOrEqual(t, body.Uptime, 3.0)
}

func TestSPAServesIndexFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	h := NewSPAHandler(logger.NewNop(), dir)

	// Existing asset is served directly.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	// Unknown client routes fall back to the shell.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/some/client/route", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shell")
}

func TestSPAMissingBuildIs500(t *testing.T) {
	h := NewSPAHandler(logger.NewNop(), t.TempDir())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Build missing")
}

func TestSPAPicksFirstCandidateWithIndex(t *testing.T) {
	empty := t.TempDir()
	built := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(built, "index.html"), []byte("built"), 0o644))

	h := NewSPAHandler(logger.NewNop(), empty, built)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "built", rec.Body.String())
}
