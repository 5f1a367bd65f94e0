package services

import (
	"context"
	"fmt"

	"taskmarket/internal/authz"
	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
)

// Effective is the outcome of permission aggregation for one user and mode.
type Effective struct {
	Roles       []models.Role
	Permissions authz.PermissionSet
}

type PermissionService interface {
	// EffectivePermissions computes what userID may do under mode right now.
	// A user without roles gets an empty set; any storage error is returned
	// instead of a partial or empty result.
	EffectivePermissions(ctx context.Context, userID int64, mode models.Mode) (*Effective, error)
}

type permissionService struct {
	roles repositories.RoleRepository
}

func NewPermissionService(roles repositories.RoleRepository) PermissionService {
	return &permissionService{roles: roles}
}

func (s *permissionService) EffectivePermissions(ctx context.Context, userID int64, mode models.Mode) (*Effective, error) {
	if !mode.IsOperating() {
		return nil, fmt.Errorf("effective permissions: %w: %q", models.ErrInvalidMode, mode)
	}

	roles, err := s.roles.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles of user %d: %w", userID, err)
	}
	if len(roles) == 0 {
		return &Effective{Permissions: authz.NewPermissionSet()}, nil
	}

	var allKeys []string
	ids := make([]int64, 0, len(roles))
	universal := false
	for _, r := range roles {
		ids = append(ids, r.ID)
		if r.IsUniversal {
			universal = true
		}
	}

	if universal {
		allKeys, err = s.roles.ListPermissionKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("load permission catalogue: %w", err)
		}
		return &Effective{Roles: roles, Permissions: authz.Resolve(roles, nil, allKeys, mode)}, nil
	}

	grants, err := s.roles.ListGrantsForRoles(ctx, ids, mode)
	if err != nil {
		return nil, fmt.Errorf("load grants of user %d: %w", userID, err)
	}
	return &Effective{Roles: roles, Permissions: authz.Resolve(roles, grants, nil, mode)}, nil
}
