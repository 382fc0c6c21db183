// Package proxy forwards /api requests to the upstream provider backend.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/pkg/logger"
	"github.com/byom-labs/byom-chat/pkg/metrics"
)

// New creates a reverse proxy to the given origin. Callers mount it behind
// http.StripPrefix so the /api prefix never reaches the upstream. The Host
// header is rewritten to the target origin.
func New(target string, log *logger.Logger) (http.Handler, error) {
	origin, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream origin %q: %w", target, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("upstream origin %q must include scheme and host", target)
	}

	plog := log.WithComponent("proxy")

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.Out.Host = origin.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.ProxyErrors.Inc()
			plog.Error("upstream request failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"ok":false,"error":"upstream unavailable"}`))
		},
	}

	plog.Info("proxying /api", zap.String("target", target))
	return rp, nil
}
