package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmarket/internal/models"
)

func TestListGrantsForRoles_FiltersAllowAndMode(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepository(db)

	rows := sqlmock.NewRows([]string{"role_id", "permission_key", "mode", "allow"}).
		AddRow(int64(1), "tasks.claim", "taskDoer", true).
		AddRow(int64(2), "tasks.view", "all", true)
	mock.ExpectQuery(qm("WHERE rp.role_id IN ($1, $2)") + `\s+` + qm("AND rp.allow = TRUE") + `\s+` + qm("AND rp.mode IN ($3, $4)")).
		WithArgs(int64(1), int64(2), "all", "taskDoer").
		WillReturnRows(rows)

	grants, err := repo.ListGrantsForRoles(context.Background(), []int64{1, 2}, models.ModeTaskDoer)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "tasks.claim", grants[0].PermissionKey)
	assert.Equal(t, models.ModeTaskDoer, grants[0].Mode)
	assert.Equal(t, models.ModeAll, grants[1].Mode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGrantsForRoles_NoRolesSkipsQuery(t *testing.T) {
	db, mock := newMock(t)
	grants, err := NewRoleRepository(db).ListGrantsForRoles(context.Background(), nil, models.ModeTaskGiver)
	require.NoError(t, err)
	assert.Empty(t, grants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGrantsForRoles_QueryError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(qm("FROM role_permissions rp")).WillReturnError(errors.New("boom"))

	_, err := NewRoleRepository(db).ListGrantsForRoles(context.Background(), []int64{3}, models.ModeTaskGiver)
	assert.ErrorContains(t, err, "list grants for roles")
}

func TestRemoveRoleFromUser_RowsAffected(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepository(db)

	mock.ExpectExec(qm("DELETE FROM user_roles")).
		WithArgs(int64(7), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RemoveRoleFromUser(context.Background(), 7, 2), models.ErrNotFound)

	mock.ExpectExec(qm("DELETE FROM user_roles")).
		WithArgs(int64(7), int64(2)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver lost count")))
	err := repo.RemoveRoleFromUser(context.Background(), 7, 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
	assert.ErrorContains(t, err, "driver lost count")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokePermission_RowsAffectedError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(qm("DELETE FROM role_permissions")).
		WithArgs(int64(1), int64(4), "taskDoer").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver lost count")))

	err := NewRoleRepository(db).RevokePermission(context.Background(), 1, 4, models.ModeTaskDoer)
	assert.ErrorContains(t, err, "driver lost count")
	assert.NoError(t, mock.ExpectationsWereMet())
}
