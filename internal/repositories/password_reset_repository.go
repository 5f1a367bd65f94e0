package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"taskmarket/internal/models"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*models.PasswordReset, error)
	// Redeem spends an unused, unexpired token and sets the new password hash
	// in one transaction. The user's refresh token is dropped as well, so
	// other sessions cannot be extended. An unknown, used or expired token
	// yields ErrNotFound.
	Redeem(ctx context.Context, token, passwordHash string, now time.Time) (int64, error)
}

type passwordResetRepository struct {
	db *sqlx.DB
}

func NewPasswordResetRepository(db *sqlx.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*models.PasswordReset, error) {
	const q = `
		INSERT INTO password_resets (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	pr := &models.PasswordReset{UserID: userID, Token: token, ExpiresAt: expiresAt}
	if err := r.db.QueryRowxContext(ctx, q, userID, token, expiresAt).Scan(&pr.ID, &pr.CreatedAt); err != nil {
		return nil, fmt.Errorf("create password reset: %w", err)
	}
	return pr, nil
}

func (r *passwordResetRepository) Redeem(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin password reset: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowxContext(ctx, `
		UPDATE password_resets SET used_at = $1
		WHERE token = $2 AND used_at IS NULL AND expires_at > $1
		RETURNING user_id`, now, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("password reset token: %w", models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("spend password reset token: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, refresh_token = NULL, refresh_expires_at = NULL, refresh_revoked = TRUE
		WHERE id = $2`, passwordHash, userID); err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit password reset: %w", err)
	}
	return userID, nil
}
