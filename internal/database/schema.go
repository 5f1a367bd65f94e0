package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                 BIGSERIAL PRIMARY KEY,
		email              TEXT NOT NULL UNIQUE,
		username           TEXT NOT NULL,
		password_hash      TEXT NOT NULL,
		role               TEXT NOT NULL DEFAULT 'user',
		mode               TEXT NOT NULL DEFAULT 'taskDoer' CHECK (mode IN ('taskDoer','taskGiver')),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		refresh_token      TEXT UNIQUE,
		refresh_expires_at TIMESTAMPTZ,
		refresh_revoked    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id           BIGSERIAL PRIMARY KEY,
		key          TEXT NOT NULL UNIQUE,
		label        TEXT NOT NULL,
		is_universal BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id          BIGSERIAL PRIMARY KEY,
		key         TEXT NOT NULL UNIQUE,
		group_name  TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id     BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS role_permissions (
		id            BIGSERIAL PRIMARY KEY,
		role_id       BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		mode          TEXT NOT NULL DEFAULT 'all' CHECK (mode IN ('all','taskDoer','taskGiver')),
		allow         BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_role_permissions_role ON role_permissions (role_id, mode)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id                 BIGSERIAL PRIMARY KEY,
		giver_id           BIGINT NOT NULL REFERENCES users(id),
		title              TEXT NOT NULL,
		platform           TEXT NOT NULL,
		service            TEXT NOT NULL,
		target_url         TEXT NOT NULL,
		quantity           INTEGER NOT NULL CHECK (quantity > 0),
		remaining_quantity INTEGER NOT NULL,
		price_per_unit     NUMERIC(14,4) NOT NULL DEFAULT 0,
		status             TEXT NOT NULL DEFAULT 'active',
		admin_status       TEXT NOT NULL DEFAULT 'pending',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (remaining_quantity >= 0 AND remaining_quantity <= quantity)
	)`,
	`CREATE TABLE IF NOT EXISTS task_executions (
		id           BIGSERIAL PRIMARY KEY,
		task_id      BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id      BIGINT NOT NULL REFERENCES users(id),
		status       TEXT NOT NULL DEFAULT 'pending',
		proof_url    TEXT,
		reserved_at  TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL,
		submitted_at TIMESTAMPTZ,
		reviewed_at  TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_executions_pending_expiry
		ON task_executions (expires_at) WHERE status = 'pending' AND submitted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_task_executions_user ON task_executions (user_id, task_id)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at    TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates missing tables and indexes. It never alters existing ones.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
