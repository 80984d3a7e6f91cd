package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yangxb919/prspares-website/internal/domain"
	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
	"github.com/yangxb919/prspares-website/pkg/database"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `
		SELECT id, user_id, expires_at, created_at, revoked_at
		FROM auth_sessions
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetSession", query)
	var s domain.Session
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt, &s.RevokedAt)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, email, role, email_confirmed_at
		FROM auth_users
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetUser", query)
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.Role, &u.EmailConfirmedAt)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
