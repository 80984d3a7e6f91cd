package auth

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
	"github.com/yangxb919/prspares-website/pkg/httputil"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

type contextKey struct{}

// DecisionFromContext returns the decision stored by RequireSession.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(contextKey{}).(Decision)
	return d, ok
}

// WithDecision returns ctx carrying d.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// RequireSession redirects requests that fail the gate to the login page
// with the requested URL in next. Admitted requests carry the decision and
// a logger tagged with the user.
func RequireSession(gate *Gate, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			d := gate.Check(ctx, r)
			l := logger.FromContext(ctx)

			if !d.Allowed {
				l.InfoContext(ctx, "access denied",
					slog.String("reason", d.Reason),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteNoStore(w)
				http.Redirect(w, r, LoginRedirectURL(loginPath, r.URL.RequestURI()), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(admit(ctx, l, d)))
		})
	}
}

// RequireSessionAPI answers requests that fail the gate with a 401 JSON
// error. Admitted requests are handled as by RequireSession.
func RequireSessionAPI(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			d := gate.Check(ctx, r)
			l := logger.FromContext(ctx)

			if !d.Allowed {
				l.InfoContext(ctx, "access denied",
					slog.String("reason", d.Reason),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteNoStore(w)
				httputil.WriteError(w, r, apperrors.Unauthorized("sign in to view pricing"), l)
				return
			}

			next.ServeHTTP(w, r.WithContext(admit(ctx, l, d)))
		})
	}
}

func admit(ctx context.Context, l *slog.Logger, d Decision) context.Context {
	ctx = logger.WithUserID(ctx, d.User.ID)
	ctx = logger.WithSessionID(ctx, d.Session.ID)
	ctx = logger.NewContext(ctx, l.With(
		slog.String("user_id", d.User.ID),
		slog.String("session_id", d.Session.ID),
	))
	return WithDecision(ctx, d)
}
