package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ezrah1/orlando/internal/platform/db"
	"github.com/Ezrah1/orlando/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error

	CreateSession(ctx context.Context, sess Session) error
	FindSession(ctx context.Context, token string) (*SessionRecord, error)
	TouchSession(ctx context.Context, token string, at time.Time) error
	DeactivateSession(ctx context.Context, token string) error

	RecordAttempt(ctx context.Context, email, ip string, success bool) error
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
	ClearFailures(ctx context.Context, email string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, is_active, created_at, updated_at
		 FROM users WHERE email = $1`, email).
		Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash,
			&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePasswordHash persists a rehashed password.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, hash)
	return err
}

// CreateSession inserts a new session row, deactivating every prior
// session for the user in the same transaction. Last login wins.
func (r *PGRepository) CreateSession(ctx context.Context, sess Session) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, sess.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO sessions (token, user_id, ip, user_agent, created_at, last_activity, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
			sess.Token, sess.UserID, sess.IP, sess.UserAgent, sess.CreatedAt, sess.LastActivity)
		return err
	})
}

// FindSession loads a session row joined with the owning account.
func (r *PGRepository) FindSession(ctx context.Context, token string) (*SessionRecord, error) {
	var rec SessionRecord
	err := r.pool.QueryRow(ctx,
		`SELECT s.token, s.user_id, s.ip, s.user_agent, s.created_at, s.last_activity, s.is_active,
		        u.role, u.is_active
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1`, token).
		Scan(&rec.Token, &rec.UserID, &rec.IP, &rec.UserAgent, &rec.CreatedAt,
			&rec.LastActivity, &rec.IsActive, &rec.Role, &rec.UserActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// TouchSession refreshes the last-activity timestamp.
func (r *PGRepository) TouchSession(ctx context.Context, token string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET last_activity = $2 WHERE token = $1 AND is_active`, token, at)
	return err
}

// DeactivateSession marks a session terminal. The row stays for audit.
func (r *PGRepository) DeactivateSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE token = $1`, token)
	return err
}

// DeactivateIdleSessions marks every session idle since before the cutoff
// as terminal. Used by the sweep job; request handling relies on the lazy
// check in the guard.
func (r *PGRepository) DeactivateIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE is_active AND last_activity < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordAttempt stores one login attempt.
func (r *PGRepository) RecordAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_attempts (email, ip, success, attempted_at) VALUES ($1, $2, $3, NOW())`,
		email, ip, success)
	return err
}

// CountRecentFailures counts failed attempts for an identity since the
// given time.
func (r *PGRepository) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM login_attempts WHERE email = $1 AND NOT success AND attempted_at >= $2`,
		email, since).Scan(&count)
	return count, err
}

// ClearFailures removes failure rows after a successful login so the
// lockout counter restarts.
func (r *PGRepository) ClearFailures(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM login_attempts WHERE email = $1 AND NOT success`, email)
	return err
}

var _ Repository = (*PGRepository)(nil)
