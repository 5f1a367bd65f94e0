package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmarket/internal/models"
)

var mockNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func qm(s string) string { return regexp.QuoteMeta(s) }

var execCols = []string{
	"id", "task_id", "user_id", "status", "proof_url", "reserved_at", "expires_at",
	"submitted_at", "reviewed_at", "created_at", "updated_at",
}

func TestReclaim_CommitsBothWrites(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(qm("UPDATE task_executions")).
		WithArgs(mockNow, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm("SET remaining_quantity = remaining_quantity + 1")).
		WithArgs(mockNow, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Reclaim(context.Background(), models.TaskExecution{ID: 11, TaskID: 3}, mockNow)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReclaim_NoLongerEligibleTouchesNothing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(qm("UPDATE task_executions")).
		WithArgs(mockNow, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := repo.Reclaim(context.Background(), models.TaskExecution{ID: 11, TaskID: 3}, mockNow)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReclaim_QuantityFailureRollsBackStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(qm("UPDATE task_executions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm("SET remaining_quantity = remaining_quantity + 1")).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	ok, err := repo.Reclaim(context.Background(), models.TaskExecution{ID: 11, TaskID: 3}, mockNow)
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReclaim_MissingTaskRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(qm("UPDATE task_executions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm("SET remaining_quantity = remaining_quantity + 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err := repo.Reclaim(context.Background(), models.TaskExecution{ID: 11, TaskID: 3}, mockNow)
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)
	deadline := mockNow.Add(-time.Minute)

	rows := sqlmock.NewRows(execCols).
		AddRow(int64(1), int64(3), int64(7), "pending", nil, deadline.Add(-time.Hour), deadline, nil, nil, deadline, deadline)
	mock.ExpectQuery(qm("AND expires_at <= $1") + `\s+` + qm("ORDER BY expires_at ASC") + `$`).
		WithArgs(mockNow).
		WillReturnRows(rows)

	got, err := repo.ListExpired(context.Background(), mockNow, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ExecutionPending, got[0].Status)
	assert.Equal(t, deadline, got[0].ExpiresAt)
	assert.Nil(t, got[0].SubmittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpired_WithLimit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectQuery(qm("ORDER BY expires_at ASC LIMIT $2")).
		WithArgs(mockNow, int64(50)).
		WillReturnRows(sqlmock.NewRows(execCols))

	got, err := repo.ListExpired(context.Background(), mockNow, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_ReservesOneUnit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)
	expires := mockNow.Add(15 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(qm("FROM tasks WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "giver_id", "remaining_quantity", "status", "admin_status"}).
			AddRow(int64(3), int64(100), 2, "active", "approved"))
	mock.ExpectQuery(qm("SELECT COUNT(*) FROM task_executions")).
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(qm("SET remaining_quantity = remaining_quantity - 1")).
		WithArgs(mockNow, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qm("INSERT INTO task_executions")).
		WithArgs(int64(3), int64(7), "pending", mockNow, expires).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(21), mockNow, mockNow))
	mock.ExpectCommit()

	exec, err := repo.Claim(context.Background(), 3, 7, mockNow, expires)
	require.NoError(t, err)
	assert.Equal(t, int64(21), exec.ID)
	assert.Equal(t, models.ExecutionPending, exec.Status)
	assert.Equal(t, expires, exec.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaim_Refusals(t *testing.T) {
	taskCols := []string{"id", "giver_id", "remaining_quantity", "status", "admin_status"}
	cases := []struct {
		name      string
		giver     int64
		remaining int
		status    string
		admin     string
		want      error
	}{
		{"own task", 7, 5, "active", "approved", models.ErrOwnTask},
		{"not approved", 100, 5, "active", "pending", models.ErrTaskNotClaimable},
		{"paused", 100, 5, "paused", "approved", models.ErrTaskNotClaimable},
		{"sold out", 100, 0, "active", "approved", models.ErrNoQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewTaskExecutionRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(qm("FOR UPDATE")).
				WillReturnRows(sqlmock.NewRows(taskCols).AddRow(int64(3), tc.giver, tc.remaining, tc.status, tc.admin))
			mock.ExpectRollback()

			_, err := repo.Claim(context.Background(), 3, 7, mockNow, mockNow.Add(time.Minute))
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClaim_AlreadyHolding(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(qm("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "giver_id", "remaining_quantity", "status", "admin_status"}).
			AddRow(int64(3), int64(100), 2, "active", "approved"))
	mock.ExpectQuery(qm("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Claim(context.Background(), 3, 7, mockNow, mockNow.Add(time.Minute))
	assert.ErrorIs(t, err, models.ErrAlreadyClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitProof_LostRaceIsIllegalTransition(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskExecutionRepository(db)

	mock.ExpectQuery(qm("AND status = 'pending' AND submitted_at IS NULL AND expires_at > $2")).
		WithArgs("https://proof", mockNow, int64(9), int64(7)).
		WillReturnRows(sqlmock.NewRows(execCols))

	_, err := repo.SubmitProof(context.Background(), 9, 7, "https://proof", mockNow)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
