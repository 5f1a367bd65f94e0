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

type TaskExecutionRepository interface {
	// Claim reserves one unit of the task for userID in a single transaction:
	// the task row is locked, remaining_quantity decremented and a pending
	// execution inserted.
	Claim(ctx context.Context, taskID, userID int64, reservedAt, expiresAt time.Time) (*models.TaskExecution, error)
	FindByID(ctx context.Context, id int64) (*models.TaskExecution, error)
	ListByUser(ctx context.Context, userID int64) ([]models.TaskExecution, error)
	SubmitProof(ctx context.Context, id, userID int64, proofURL string, now time.Time) (*models.TaskExecution, error)
	Review(ctx context.Context, id int64, to models.ExecutionStatus, now time.Time) (*models.TaskExecution, error)

	// ListExpired returns pending, unsubmitted executions whose deadline is at
	// or before now, oldest deadline first. limit <= 0 means no limit.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.TaskExecution, error)
	// Reclaim flips one execution to expired and gives its unit back to the
	// task, both in one transaction. It reports false without error when the
	// execution is no longer eligible (submitted or already expired).
	Reclaim(ctx context.Context, exec models.TaskExecution, now time.Time) (bool, error)
}

type taskExecutionRepository struct {
	db *sqlx.DB
}

func NewTaskExecutionRepository(db *sqlx.DB) TaskExecutionRepository {
	return &taskExecutionRepository{db: db}
}

const executionColumns = `
	id, task_id, user_id, status, proof_url, reserved_at, expires_at,
	submitted_at, reviewed_at, created_at, updated_at`

func (r *taskExecutionRepository) Claim(ctx context.Context, taskID, userID int64, reservedAt, expiresAt time.Time) (*models.TaskExecution, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	var task models.Task
	err = tx.GetContext(ctx, &task, `
		SELECT id, giver_id, remaining_quantity, status, admin_status
		FROM tasks WHERE id = $1 FOR UPDATE`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock task: %w", err)
	}
	switch {
	case task.GiverID == userID:
		return nil, models.ErrOwnTask
	case task.Status != models.TaskActive || task.AdminStatus != models.AdminApproved:
		return nil, models.ErrTaskNotClaimable
	case task.RemainingQuantity <= 0:
		return nil, models.ErrNoQuantity
	}

	var open int
	if err := tx.GetContext(ctx, &open, `
		SELECT COUNT(*) FROM task_executions
		WHERE task_id = $1 AND user_id = $2 AND status IN ('pending','submitted','approved')`,
		taskID, userID); err != nil {
		return nil, fmt.Errorf("count open executions: %w", err)
	}
	if open > 0 {
		return nil, models.ErrAlreadyClaimed
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET remaining_quantity = remaining_quantity - 1, updated_at = $1
		WHERE id = $2`, reservedAt, taskID); err != nil {
		return nil, fmt.Errorf("decrement remaining quantity: %w", err)
	}

	exec := &models.TaskExecution{
		TaskID:     taskID,
		UserID:     userID,
		Status:     models.ExecutionPending,
		ReservedAt: reservedAt,
		ExpiresAt:  expiresAt,
	}
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO task_executions (task_id, user_id, status, reserved_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		taskID, userID, exec.Status, reservedAt, expiresAt,
	).Scan(&exec.ID, &exec.CreatedAt, &exec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert execution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return exec, nil
}

func (r *taskExecutionRepository) FindByID(ctx context.Context, id int64) (*models.TaskExecution, error) {
	exec := &models.TaskExecution{}
	err := r.db.GetContext(ctx, exec, `SELECT `+executionColumns+` FROM task_executions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find execution: %w", err)
	}
	return exec, nil
}

func (r *taskExecutionRepository) ListByUser(ctx context.Context, userID int64) ([]models.TaskExecution, error) {
	var out []models.TaskExecution
	if err := r.db.SelectContext(ctx, &out, `
		SELECT `+executionColumns+` FROM task_executions
		WHERE user_id = $1 ORDER BY reserved_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return out, nil
}

func (r *taskExecutionRepository) SubmitProof(ctx context.Context, id, userID int64, proofURL string, now time.Time) (*models.TaskExecution, error) {
	exec := &models.TaskExecution{}
	err := r.db.GetContext(ctx, exec, `
		UPDATE task_executions
		SET status = 'submitted', proof_url = $1, submitted_at = $2, updated_at = $2
		WHERE id = $3 AND user_id = $4
		  AND status = 'pending' AND submitted_at IS NULL AND expires_at > $2
		RETURNING `+executionColumns, proofURL, now, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		// lost the race against the sweep or a second submit
		return nil, models.ErrIllegalTransition
	}
	if err != nil {
		return nil, fmt.Errorf("submit proof: %w", err)
	}
	return exec, nil
}

func (r *taskExecutionRepository) Review(ctx context.Context, id int64, to models.ExecutionStatus, now time.Time) (*models.TaskExecution, error) {
	exec := &models.TaskExecution{}
	err := r.db.GetContext(ctx, exec, `
		UPDATE task_executions
		SET status = $1, reviewed_at = $2, updated_at = $2
		WHERE id = $3 AND status = 'submitted'
		RETURNING `+executionColumns, to, now, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrIllegalTransition
	}
	if err != nil {
		return nil, fmt.Errorf("review execution: %w", err)
	}
	return exec, nil
}

func (r *taskExecutionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.TaskExecution, error) {
	q := `
		SELECT ` + executionColumns + `
		FROM task_executions
		WHERE status = 'pending'
		  AND submitted_at IS NULL
		  AND expires_at <= $1
		ORDER BY expires_at ASC`
	args := []interface{}{now}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	var out []models.TaskExecution
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list expired executions: %w", err)
	}
	return out, nil
}

func (r *taskExecutionRepository) Reclaim(ctx context.Context, exec models.TaskExecution, now time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin reclaim: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE task_executions
		SET status = 'expired', updated_at = $1
		WHERE id = $2 AND status = 'pending' AND submitted_at IS NULL AND expires_at <= $1`,
		now, exec.ID)
	if err != nil {
		return false, fmt.Errorf("expire execution %d: %w", exec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire execution %d: %w", exec.ID, err)
	}
	if n == 0 {
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET remaining_quantity = remaining_quantity + 1, updated_at = $1
		WHERE id = $2`, now, exec.TaskID)
	if err != nil {
		return false, fmt.Errorf("restore quantity of task %d: %w", exec.TaskID, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, fmt.Errorf("restore quantity of task %d: row not updated (err=%v)", exec.TaskID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit reclaim %d: %w", exec.ID, err)
	}
	return true, nil
}
