package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"taskmarket/internal/models"
)

type RoleRepository interface {
	CreateRole(ctx context.Context, role *models.Role) error
	GetRoleByID(ctx context.Context, id int64) (*models.Role, error)
	GetRoleByKey(ctx context.Context, key string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)

	CreatePermission(ctx context.Context, p *models.Permission) error
	GetPermissionByKey(ctx context.Context, key string) (*models.Permission, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	ListPermissionKeys(ctx context.Context) ([]string, error)

	GrantPermission(ctx context.Context, rp *models.RolePermission) error
	RevokePermission(ctx context.Context, roleID, permissionID int64, mode models.Mode) error
	ListRoleGrants(ctx context.Context, roleID int64) ([]models.PermissionGrant, error)

	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error
	GetUserRoles(ctx context.Context, userID int64) ([]models.Role, error)
	// ListGrantsForRoles returns allow rows of the given roles that apply
	// under mode, i.e. rows scoped to "all" or to mode itself.
	ListGrantsForRoles(ctx context.Context, roleIDs []int64, mode models.Mode) ([]models.PermissionGrant, error)
}

type roleRepository struct {
	db *sqlx.DB
}

func NewRoleRepository(db *sqlx.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) CreateRole(ctx context.Context, role *models.Role) error {
	const q = `
		INSERT INTO roles (key, label, is_universal)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, q, role.Key, role.Label, role.IsUniversal).
		Scan(&role.ID, &role.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role %q: %w", role.Key, models.ErrAlreadyExists)
		}
		return fmt.Errorf("create role %q: %w", role.Key, err)
	}
	return nil
}

func (r *roleRepository) GetRoleByID(ctx context.Context, id int64) (*models.Role, error) {
	role := &models.Role{}
	err := r.db.GetContext(ctx, role,
		`SELECT id, key, label, is_universal, created_at FROM roles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("role %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get role by id: %w", err)
	}
	return role, nil
}

func (r *roleRepository) GetRoleByKey(ctx context.Context, key string) (*models.Role, error) {
	role := &models.Role{}
	err := r.db.GetContext(ctx, role,
		`SELECT id, key, label, is_universal, created_at FROM roles WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("role %q: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get role by key: %w", err)
	}
	return role, nil
}

func (r *roleRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles,
		`SELECT id, key, label, is_universal, created_at FROM roles ORDER BY key`); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (r *roleRepository) CreatePermission(ctx context.Context, p *models.Permission) error {
	const q = `
		INSERT INTO permissions (key, group_name, description)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, q, p.Key, p.Group, p.Description).Scan(&p.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("permission %q: %w", p.Key, models.ErrAlreadyExists)
		}
		return fmt.Errorf("create permission %q: %w", p.Key, err)
	}
	return nil
}

func (r *roleRepository) GetPermissionByKey(ctx context.Context, key string) (*models.Permission, error) {
	p := &models.Permission{}
	err := r.db.GetContext(ctx, p,
		`SELECT id, key, group_name, description FROM permissions WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("permission %q: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get permission by key: %w", err)
	}
	return p, nil
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms,
		`SELECT id, key, group_name, description FROM permissions ORDER BY group_name, key`); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

func (r *roleRepository) ListPermissionKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, `SELECT key FROM permissions ORDER BY key`); err != nil {
		return nil, fmt.Errorf("list permission keys: %w", err)
	}
	return keys, nil
}

func (r *roleRepository) GrantPermission(ctx context.Context, rp *models.RolePermission) error {
	const q = `
		INSERT INTO role_permissions (role_id, permission_id, mode, allow)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, q, rp.RoleID, rp.PermissionID, rp.Mode, rp.Allow).Scan(&rp.ID); err != nil {
		return fmt.Errorf("grant permission %d to role %d: %w", rp.PermissionID, rp.RoleID, err)
	}
	return nil
}

func (r *roleRepository) RevokePermission(ctx context.Context, roleID, permissionID int64, mode models.Mode) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2 AND mode = $3`,
		roleID, permissionID, mode)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke permission rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("role permission: %w", models.ErrNotFound)
	}
	return nil
}

func (r *roleRepository) ListRoleGrants(ctx context.Context, roleID int64) ([]models.PermissionGrant, error) {
	const q = `
		SELECT rp.role_id, p.key AS permission_key, rp.mode, rp.allow
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.key, rp.mode`
	var grants []models.PermissionGrant
	if err := r.db.SelectContext(ctx, &grants, q, roleID); err != nil {
		return nil, fmt.Errorf("list role grants: %w", err)
	}
	return grants, nil
}

func (r *roleRepository) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("assign role %d to user %d: %w", roleID, userID, err)
	}
	return nil
}

func (r *roleRepository) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove role rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user role: %w", models.ErrNotFound)
	}
	return nil
}

func (r *roleRepository) GetUserRoles(ctx context.Context, userID int64) ([]models.Role, error) {
	const q = `
		SELECT r.id, r.key, r.label, r.is_universal, r.created_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.key`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, q, userID); err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}
	return roles, nil
}

func (r *roleRepository) ListGrantsForRoles(ctx context.Context, roleIDs []int64, mode models.Mode) ([]models.PermissionGrant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`
		SELECT rp.role_id, p.key AS permission_key, rp.mode, rp.allow
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id IN (?)
		  AND rp.allow = TRUE
		  AND rp.mode IN (?, ?)`, roleIDs, string(models.ModeAll), string(mode))
	if err != nil {
		return nil, fmt.Errorf("build grants query: %w", err)
	}
	var grants []models.PermissionGrant
	if err := r.db.SelectContext(ctx, &grants, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list grants for roles: %w", err)
	}
	return grants, nil
}
