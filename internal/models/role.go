package models

import "time"

// Role is a named bundle of permissions. A universal role grants every
// permission in the system regardless of its role_permissions rows.
type Role struct {
	ID          int64     `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	Label       string    `json:"label" db:"label"`
	IsUniversal bool      `json:"is_universal" db:"is_universal"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Permission struct {
	ID          int64  `json:"id" db:"id"`
	Key         string `json:"key" db:"key"`
	Group       string `json:"group" db:"group_name"`
	Description string `json:"description" db:"description"`
}

type RolePermission struct {
	ID           int64 `json:"id" db:"id"`
	RoleID       int64 `json:"role_id" db:"role_id"`
	PermissionID int64 `json:"permission_id" db:"permission_id"`
	Mode         Mode  `json:"mode" db:"mode"`
	Allow        bool  `json:"allow" db:"allow"`
}

type UserRole struct {
	UserID     int64     `json:"user_id" db:"user_id"`
	RoleID     int64     `json:"role_id" db:"role_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

// PermissionGrant is one role_permissions row joined with its permission key.
type PermissionGrant struct {
	RoleID        int64  `db:"role_id"`
	PermissionKey string `db:"permission_key"`
	Mode          Mode   `db:"mode"`
	Allow         bool   `db:"allow"`
}

// RoleRef is the role summary embedded in access tokens.
type RoleRef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type CreateRoleRequest struct {
	Key         string `json:"key" binding:"required"`
	Label       string `json:"label" binding:"required"`
	IsUniversal bool   `json:"is_universal"`
}

type CreatePermissionRequest struct {
	Key         string `json:"key" binding:"required"`
	Group       string `json:"group"`
	Description string `json:"description"`
}

type GrantPermissionRequest struct {
	PermissionKey string `json:"permission_key" binding:"required"`
	Mode          Mode   `json:"mode"`
	Allow         *bool  `json:"allow"`
}
