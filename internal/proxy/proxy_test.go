package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byom-labs/byom-chat/pkg/logger"
)

func TestProxyStripsPrefixAndRewritesHost(t *testing.T) {
	var gotPath, gotHost, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHost = r.Host
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p, err := New(upstream.URL, logger.NewNop())
	require.NoError(t, err)

	front := httptest.NewServer(http.StripPrefix("/api", p))
	defer front.Close()

	req, _ := http.NewRequest(http.MethodGet, front.URL+"/api/provider", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "/provider", gotPath, "the /api prefix must be stripped")
	assert.Contains(t, upstream.URL, gotHost, "Host must be rewritten to the origin")
	assert.Equal(t, "Bearer token-123", gotAuth, "credentials pass through")
}

func TestProxyUpstreamDownIs502(t *testing.T) {
	p, err := New("http://127.0.0.1:1", logger.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/provider", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream unavailable")
}

func TestProxyRejectsBadOrigin(t *testing.T) {
	_, err := New("not-a-url", logger.NewNop())
	assert.Error(t, err)
}
