package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmarket/internal/models"
)

func seedRoles(t *testing.T) *fakeRoleRepo {
	t.Helper()
	repo := newFakeRoleRepo()
	ctx := context.Background()
	for _, k := range []string{"A", "B", "C", "D"} {
		require.NoError(t, repo.CreatePermission(ctx, &models.Permission{Key: k}))
	}
	r1 := &models.Role{Key: "r1", Label: "R1"}
	r2 := &models.Role{Key: "r2", Label: "R2"}
	root := &models.Role{Key: "root", Label: "Root", IsUniversal: true}
	for _, r := range []*models.Role{r1, r2, root} {
		require.NoError(t, repo.CreateRole(ctx, r))
	}
	grant := func(roleID int64, key string, mode models.Mode, allow bool) {
		p, err := repo.GetPermissionByKey(ctx, key)
		require.NoError(t, err)
		require.NoError(t, repo.GrantPermission(ctx, &models.RolePermission{RoleID: roleID, PermissionID: p.ID, Mode: mode, Allow: allow}))
	}
	grant(r1.ID, "A", models.ModeAll, true)
	grant(r1.ID, "B", models.ModeAll, true)
	grant(r2.ID, "B", models.ModeTaskDoer, true)
	grant(r2.ID, "C", models.ModeTaskDoer, true)
	return repo
}

func TestEffectivePermissions_UnionScopedByMode(t *testing.T) {
	repo := seedRoles(t)
	ctx := context.Background()
	require.NoError(t, repo.AssignRoleToUser(ctx, 10, 1))
	require.NoError(t, repo.AssignRoleToUser(ctx, 10, 2))
	svc := NewPermissionService(repo)

	eff, err := svc.EffectivePermissions(ctx, 10, models.ModeTaskDoer)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, eff.Permissions.Keys())
	assert.Len(t, eff.Roles, 2)

	eff, err = svc.EffectivePermissions(ctx, 10, models.ModeTaskGiver)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, eff.Permissions.Keys())
}

func TestEffectivePermissions_DenyRowIsExcluded(t *testing.T) {
	repo := seedRoles(t)
	ctx := context.Background()
	d, _ := repo.GetPermissionByKey(ctx, "D")
	require.NoError(t, repo.GrantPermission(ctx, &models.RolePermission{RoleID: 1, PermissionID: d.ID, Mode: models.ModeAll, Allow: false}))
	require.NoError(t, repo.AssignRoleToUser(ctx, 10, 1))

	eff, err := NewPermissionService(repo).EffectivePermissions(ctx, 10, models.ModeTaskDoer)
	require.NoError(t, err)
	assert.False(t, eff.Permissions.Has("D"))
}

func TestEffectivePermissions_UniversalRoleShortCircuits(t *testing.T) {
	repo := seedRoles(t)
	ctx := context.Background()
	require.NoError(t, repo.AssignRoleToUser(ctx, 1, 3))

	eff, err := NewPermissionService(repo).EffectivePermissions(ctx, 1, models.ModeTaskGiver)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, eff.Permissions.Keys())
	assert.Equal(t, 0, repo.grantCalls, "grants are not consulted for a universal role")
}

func TestEffectivePermissions_NoRolesIsEmptyNotError(t *testing.T) {
	repo := seedRoles(t)
	eff, err := NewPermissionService(repo).EffectivePermissions(context.Background(), 404, models.ModeTaskDoer)
	require.NoError(t, err)
	require.NotNil(t, eff.Permissions)
	assert.Empty(t, eff.Permissions.Keys())
}

func TestEffectivePermissions_FailsClosed(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("roles lookup", func(t *testing.T) {
		repo := seedRoles(t)
		repo.rolesErr = boom
		eff, err := NewPermissionService(repo).EffectivePermissions(ctx, 10, models.ModeTaskDoer)
		assert.Nil(t, eff)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("grants lookup", func(t *testing.T) {
		repo := seedRoles(t)
		require.NoError(t, repo.AssignRoleToUser(ctx, 10, 1))
		repo.grantsErr = boom
		eff, err := NewPermissionService(repo).EffectivePermissions(ctx, 10, models.ModeTaskDoer)
		assert.Nil(t, eff)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("catalogue lookup for universal role", func(t *testing.T) {
		repo := seedRoles(t)
		require.NoError(t, repo.AssignRoleToUser(ctx, 10, 3))
		repo.keysErr = boom
		eff, err := NewPermissionService(repo).EffectivePermissions(ctx, 10, models.ModeTaskDoer)
		assert.Nil(t, eff)
		assert.ErrorIs(t, err, boom)
	})
}

func TestEffectivePermissions_RejectsNonOperatingMode(t *testing.T) {
	svc := NewPermissionService(seedRoles(t))
	_, err := svc.EffectivePermissions(context.Background(), 1, models.ModeAll)
	assert.ErrorIs(t, err, models.ErrInvalidMode)
	_, err = svc.EffectivePermissions(context.Background(), 1, models.Mode("nope"))
	assert.ErrorIs(t, err, models.ErrInvalidMode)
}
