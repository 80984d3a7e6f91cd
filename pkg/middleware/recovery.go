package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/yangxb919/prspares-website/pkg/httputil"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

// Recovery recovers from panics and answers 500 with the generic error body
// instead of crashing the server.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				httputil.WriteNoStore(w)
				httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorBody{
					Error:     httputil.GenericErrorMessage,
					Code:      "INTERNAL_ERROR",
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
