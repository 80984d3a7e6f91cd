package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yangxb919/prspares-website/internal/domain"
	"github.com/yangxb919/prspares-website/internal/repository"
)

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockUserCache struct {
	mock.Mock
}

func (m *mockUserCache) Get(ctx context.Context, userID string) (*repository.CachedUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.CachedUser), args.Error(1)
}

func (m *mockUserCache) Set(ctx context.Context, entry *repository.CachedUser) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockUserCache) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// stubProvider returns fixed values for gate tests.
type stubProvider struct {
	session    *domain.Session
	sessionErr error
	user       *domain.User
	userErr    error
}

func (p stubProvider) Session(context.Context, *http.Request) (*domain.Session, error) {
	return p.session, p.sessionErr
}

func (p stubProvider) User(context.Context, *domain.Session) (*domain.User, error) {
	return p.user, p.userErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func timePtr(t time.Time) *time.Time { return &t }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func confirmedUser() *domain.User {
	return &domain.User{ID: "user-1", Email: "buyer@example.com", Role: domain.RoleCustomer, EmailConfirmedAt: timePtr(now.Add(-24 * time.Hour))}
}

func unconfirmedUser() *domain.User {
	u := confirmedUser()
	u.EmailConfirmedAt = nil
	return u
}

func activeSession() *domain.Session {
	return &domain.Session{ID: "sess-1", UserID: "user-1", CreatedAt: now.Add(-time.Hour), ExpiresAt: timePtr(now.Add(time.Hour))}
}
