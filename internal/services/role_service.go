package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"taskmarket/internal/authz"
	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
)

type RoleService interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	CreatePermission(ctx context.Context, req models.CreatePermissionRequest) (*models.Permission, error)
	RoleGrants(ctx context.Context, roleID int64) ([]models.PermissionGrant, error)
	Grant(ctx context.Context, roleID int64, req models.GrantPermissionRequest) (*models.RolePermission, error)
	Revoke(ctx context.Context, roleID int64, permissionKey string, mode models.Mode) error

	// EnsureDefaults seeds the permission catalogue and the default roles.
	// Existing rows are left as they are, so grants edited through the API
	// survive restarts.
	EnsureDefaults(ctx context.Context) error
}

type roleService struct {
	repo repositories.RoleRepository
}

func NewRoleService(repo repositories.RoleRepository) RoleService {
	return &roleService{repo: repo}
}

func (s *roleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *roleService) CreateRole(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error) {
	role := &models.Role{Key: req.Key, Label: req.Label, IsUniversal: req.IsUniversal}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *roleService) CreatePermission(ctx context.Context, req models.CreatePermissionRequest) (*models.Permission, error) {
	p := &models.Permission{Key: req.Key, Group: req.Group, Description: req.Description}
	if err := s.repo.CreatePermission(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *roleService) RoleGrants(ctx context.Context, roleID int64) ([]models.PermissionGrant, error) {
	if _, err := s.repo.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.ListRoleGrants(ctx, roleID)
}

func (s *roleService) Grant(ctx context.Context, roleID int64, req models.GrantPermissionRequest) (*models.RolePermission, error) {
	mode := req.Mode
	if mode == "" {
		mode = models.ModeAll
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("grant: %w: %q", models.ErrInvalidMode, mode)
	}
	allow := true
	if req.Allow != nil {
		allow = *req.Allow
	}

	if _, err := s.repo.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	perm, err := s.repo.GetPermissionByKey(ctx, req.PermissionKey)
	if err != nil {
		return nil, err
	}
	rp := &models.RolePermission{RoleID: roleID, PermissionID: perm.ID, Mode: mode, Allow: allow}
	if err := s.repo.GrantPermission(ctx, rp); err != nil {
		return nil, err
	}
	return rp, nil
}

func (s *roleService) Revoke(ctx context.Context, roleID int64, permissionKey string, mode models.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("revoke: %w: %q", models.ErrInvalidMode, mode)
	}
	perm, err := s.repo.GetPermissionByKey(ctx, permissionKey)
	if err != nil {
		return err
	}
	return s.repo.RevokePermission(ctx, roleID, perm.ID, mode)
}

func (s *roleService) EnsureDefaults(ctx context.Context) error {
	permIDs := make(map[string]int64, len(authz.Catalogue))
	created := 0
	for _, seed := range authz.Catalogue {
		p, err := s.repo.GetPermissionByKey(ctx, seed.Key)
		if errors.Is(err, models.ErrNotFound) {
			p = &models.Permission{Key: seed.Key, Group: seed.Group}
			err = s.repo.CreatePermission(ctx, p)
			created++
		}
		if err != nil {
			return fmt.Errorf("seed permission %q: %w", seed.Key, err)
		}
		permIDs[seed.Key] = p.ID
	}

	for _, seed := range authz.DefaultRoles {
		_, err := s.repo.GetRoleByKey(ctx, seed.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("seed role %q: %w", seed.Key, err)
		}

		role := &models.Role{Key: seed.Key, Label: seed.Label, IsUniversal: seed.Universal}
		if err := s.repo.CreateRole(ctx, role); err != nil {
			return fmt.Errorf("seed role %q: %w", seed.Key, err)
		}
		for _, g := range seed.Grants {
			rp := &models.RolePermission{RoleID: role.ID, PermissionID: permIDs[g.Permission], Mode: g.Mode, Allow: true}
			if err := s.repo.GrantPermission(ctx, rp); err != nil {
				return fmt.Errorf("seed grant %s/%s: %w", seed.Key, g.Permission, err)
			}
		}
		created++
	}

	log.Printf("[authz][seed] permissions=%d roles=%d created=%d", len(authz.Catalogue), len(authz.DefaultRoles), created)
	return nil
}
