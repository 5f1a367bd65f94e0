package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskmarket/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id int64, to models.TaskStatus) error
	UpdateAdminStatus(ctx context.Context, id int64, to models.AdminStatus) error
}

type taskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `
	id, giver_id, title, platform, service, target_url, quantity, remaining_quantity,
	price_per_unit, status, admin_status, created_at, updated_at`

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			giver_id, title, platform, service, target_url, quantity, remaining_quantity,
			price_per_unit, status, admin_status, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		task.GiverID, task.Title, task.Platform, task.Service, task.TargetURL,
		task.Quantity, task.RemainingQuantity, task.PricePerUnit, task.Status, task.AdminStatus,
		task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	task := &models.Task{}
	err := r.db.GetContext(ctx, task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.GiverID != nil {
		conditions = append(conditions, fmt.Sprintf("giver_id = $%d", argID))
		args = append(args, *filter.GiverID)
		argID++
	}
	if filter.Platform != nil {
		conditions = append(conditions, fmt.Sprintf("platform = $%d", argID))
		args = append(args, *filter.Platform)
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.AdminStatus != nil {
		conditions = append(conditions, fmt.Sprintf("admin_status = $%d", argID))
		args = append(args, *filter.AdminStatus)
		argID++
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		baseQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id int64, to models.TaskStatus) error {
	return r.exec1(ctx, id, `UPDATE tasks SET status=$1, updated_at=NOW() WHERE id=$2`, to)
}

func (r *taskRepository) UpdateAdminStatus(ctx context.Context, id int64, to models.AdminStatus) error {
	return r.exec1(ctx, id, `UPDATE tasks SET admin_status=$1, updated_at=NOW() WHERE id=$2`, to)
}

func (r *taskRepository) exec1(ctx context.Context, id int64, q string, v any) error {
	res, err := r.db.ExecContext(ctx, q, v, id)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, models.ErrNotFound)
	}
	return nil
}
