package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byom-labs/byom-chat/pkg/logger"
	"github.com/byom-labs/byom-chat/pkg/metrics"
)

// CorrelationIDKey is the context key for the request correlation ID.
const CorrelationIDKey ContextKey = "correlation_id"

// Logging creates request logging middleware. The chi response wrapper
// passes http.Hijacker through, so websocket upgrades behind this
// middleware still work.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get("X-Correlation-ID")
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Correlation-ID", correlationID)

			ctx := context.WithValue(r.Context(), CorrelationIDKey, correlationID)
			r = r.WithContext(ctx)

			next.ServeHTTP(ww, r)

			// A hijacked connection never writes a status through the
			// wrapper; report it as the 101 the upgrade sent.
			status := ww.Status()
			if status == 0 {
				status = http.StatusSwitchingProtocols
			}

			duration := time.Since(start)
			log.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", duration),
				zap.String("correlation_id", correlationID),
				zap.String("remote_addr", r.RemoteAddr),
			)

			metrics.RecordRequest(r.Method, r.URL.Path, strconv.Itoa(status), duration.Seconds())
		})
	}
}

// GetCorrelationID gets the correlation ID from context.
func GetCorrelationID(ctx context.Context) string {
	if v := ctx.Value(CorrelationIDKey); v != nil {
		return v.(string)
	}
	return ""
}
