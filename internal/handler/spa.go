package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/pkg/logger"
)

// SPAHandler serves the single-page application shell. Known files are
// served from the static dir; every other path falls back to index.html so
// client routing works. A missing build artifact is a 500 for that request
// only, never fatal for the process.
type SPAHandler struct {
	dir string
	log *logger.Logger
}

// NewSPAHandler resolves the static dir from the given candidates, picking
// the first containing an index.html. Falls back to the first candidate so
// the error surfaces per request.
func NewSPAHandler(log *logger.Logger, candidates ...string) *SPAHandler {
	dir := ""
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(c, "index.html")); err == nil {
			dir = c
			break
		}
	}
	if dir == "" && len(candidates) > 0 {
		dir = candidates[0]
	}

	log.Info("serving static files", zap.String("dir", dir))
	return &SPAHandler{dir: dir, log: log.WithComponent("spa")}
}

// ServeHTTP implements http.Handler.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if rel != "" {
		full := filepath.Join(h.dir, rel)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			http.ServeFile(w, r, full)
			return
		}
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		h.log.Error("build artifact missing", zap.String("index", index))
		http.Error(w, "Build missing: dist/index.html not found. Did the client build run?", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, index)
}
