package middleware

import (
	"log/slog"
	"net/http"

	"github.com/yangxb919/prspares-website/pkg/logger"
)

// RequestLogger stores a request-scoped logger carrying correlation_id and the
// OpenTelemetry trace_id/span_id in the context. Handlers retrieve it with
// logger.FromContext.
//
// Mount it after RequestLogging and Tracing. The session middleware refreshes
// the stored logger once the user is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
