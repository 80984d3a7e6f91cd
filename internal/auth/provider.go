package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/internal/repository"
)

// ErrNoSession is returned when a request carries no session token.
var ErrNoSession = errors.New("no session token")

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "prs_session"

// SessionProvider resolves the session and user behind a request.
type SessionProvider interface {
	Session(ctx context.Context, r *http.Request) (*domain.Session, error)
	User(ctx context.Context, s *domain.Session) (*domain.User, error)
}

// Provider resolves sessions from the session store and users through a
// Redis cache in front of the user store.
type Provider struct {
	tokens     *TokenManager
	sessions   repository.SessionRepository
	users      repository.UserRepository
	cache      repository.UserCache
	cookieName string
	logger     *slog.Logger
}

// NewProvider creates a Provider. cache may be nil.
func NewProvider(
	tokens *TokenManager,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	cache repository.UserCache,
	cookieName string,
	logger *slog.Logger,
) *Provider {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Provider{
		tokens:     tokens,
		sessions:   sessions,
		users:      users,
		cache:      cache,
		cookieName: cookieName,
		logger:     logger,
	}
}

// token returns the session token from the cookie, then the bearer header.
func (p *Provider) token(r *http.Request) string {
	if c, err := r.Cookie(p.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// Session loads the session named by the request's token. The session must
// belong to the token's subject.
func (p *Provider) Session(ctx context.Context, r *http.Request) (*domain.Session, error) {
	raw := p.token(r)
	if raw == "" {
		return nil, ErrNoSession
	}

	claims, err := p.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	s, err := p.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s.UserID != claims.Subject {
		return nil, fmt.Errorf("session %s does not belong to token subject", s.ID)
	}
	return s, nil
}

// User returns the user of s. A cached user loaded for another session is
// discarded and reloaded from the store.
func (p *Provider) User(ctx context.Context, s *domain.Session) (*domain.User, error) {
	if s == nil {
		return nil, ErrNoSession
	}

	if p.cache != nil {
		entry, err := p.cache.Get(ctx, s.UserID)
		switch {
		case err == nil && entry.SessionID == s.ID && entry.User.ID == s.UserID:
			return entry.User, nil
		case err != nil && !errors.Is(err, repository.ErrCacheMiss):
			p.logger.WarnContext(ctx, "user cache read failed", slog.String("error", err.Error()))
		}
	}

	u, err := p.users.GetByID(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, &repository.CachedUser{SessionID: s.ID, User: u}); err != nil {
			p.logger.WarnContext(ctx, "user cache write failed", slog.String("error", err.Error()))
		}
	}
	return u, nil
}
