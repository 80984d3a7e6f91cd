package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yangxb919/prspares-website/internal/domain"
)

// Denial reasons. They are logged and never shown to the visitor.
const (
	ReasonNoSession   = "no active session"
	ReasonNoUser      = "user not found"
	ReasonUnconfirmed = "email not confirmed"
	ReasonExpired     = "session expired"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	User    *domain.User
	Session *domain.Session
	Reason  string
}

// Gate admits requests that carry an active session of a confirmed user.
// Any lookup error denies access.
type Gate struct {
	provider SessionProvider
	now      func() time.Time
}

// NewGate creates a Gate backed by provider.
func NewGate(provider SessionProvider) *Gate {
	return &Gate{provider: provider, now: time.Now}
}

// Check evaluates the request. The first failing check decides.
func (g *Gate) Check(ctx context.Context, r *http.Request) Decision {
	s, err := g.provider.Session(ctx, r)
	if err != nil || s == nil || s.Revoked() {
		return Decision{Reason: ReasonNoSession}
	}

	u, err := g.provider.User(ctx, s)
	if err != nil || u == nil {
		return Decision{Session: s, Reason: ReasonNoUser}
	}

	if !u.Confirmed() {
		return Decision{Session: s, User: u, Reason: ReasonUnconfirmed}
	}

	if s.ExpiredAt(g.now()) {
		return Decision{Session: s, User: u, Reason: ReasonExpired}
	}

	return Decision{Allowed: true, Session: s, User: u}
}

// LoginRedirectURL returns loginPath with next added to its query.
func LoginRedirectURL(loginPath, next string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		sep := "?"
		if strings.Contains(loginPath, "?") {
			sep = "&"
		}
		return loginPath + sep + "next=" + url.QueryEscape(next)
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}
