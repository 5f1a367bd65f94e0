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

type UserRepository interface {
	// Create inserts the user together with its first role assignment.
	// Either both rows are written or neither is.
	Create(ctx context.Context, user *models.User, roleID int64) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	UpdateMode(ctx context.Context, id int64, mode models.Mode) error

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error)
	ClearRefresh(ctx context.Context, userID int64) error
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `
	id, email, username, password_hash, role, mode, created_at,
	refresh_token, refresh_expires_at, refresh_revoked`

func (r *userRepository) Create(ctx context.Context, user *models.User, roleID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var createdAt time.Time
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO users (email, username, password_hash, role, mode)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		user.Email, user.Username, user.PasswordHash, user.Role, user.Mode,
	).Scan(&id, &createdAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Email, models.ErrAlreadyExists)
		}
		return fmt.Errorf("create user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, id, roleID); err != nil {
		return fmt.Errorf("assign role %d to new user: %w", roleID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	user.ID, user.CreatedAt = id, createdAt
	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := r.db.GetContext(ctx, u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "refresh_token = $1", token)
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateMode(ctx context.Context, id int64, mode models.Mode) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET mode = $1 WHERE id = $2`, mode, id)
	if err != nil {
		return fmt.Errorf("update mode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// ===== refresh helpers =====

func (r *userRepository) UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $1, refresh_expires_at = $2, refresh_revoked = FALSE
		WHERE id = $3`, token, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// RotateRefresh swaps the refresh token atomically; a token that was already
// rotated away matches no row and yields ErrNotFound.
func (r *userRepository) RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	u := &models.User{}
	err := r.db.GetContext(ctx, u, `
		UPDATE users
		SET refresh_token = $1, refresh_expires_at = $2, refresh_revoked = FALSE
		WHERE refresh_token = $3 AND refresh_revoked = FALSE
		RETURNING `+userColumns, newToken, newExpiresAt, oldToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh token: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return u, nil
}

func (r *userRepository) ClearRefresh(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = NULL, refresh_expires_at = NULL, refresh_revoked = TRUE
		WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
