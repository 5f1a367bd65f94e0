// internal/services/task_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
)

// TaskService defines the interface for task-related business logic.
type TaskService interface {
	Create(ctx context.Context, giverID int64, req models.CreateTaskRequest) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	GetAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	UpdateStatus(ctx context.Context, giverID, id int64, to models.TaskStatus) (*models.Task, error)
	Moderate(ctx context.Context, id int64, to models.AdminStatus) (*models.Task, error)

	Claim(ctx context.Context, userID, taskID int64) (*models.TaskExecution, error)
	MyExecutions(ctx context.Context, userID int64) ([]models.TaskExecution, error)
	SubmitProof(ctx context.Context, userID, executionID int64, proofURL string) (*models.TaskExecution, error)
	Review(ctx context.Context, giverID, executionID int64, approve bool) (*models.TaskExecution, error)
}

type taskService struct {
	repo       repositories.TaskRepository
	executions repositories.TaskExecutionRepository
	window     time.Duration
	now        func() time.Time
}

// NewTaskService creates a new instance of TaskService. window is how long a
// claim stays reserved before the expiry sweep may take it back.
func NewTaskService(repo repositories.TaskRepository, executions repositories.TaskExecutionRepository, window time.Duration) TaskService {
	return &taskService{repo: repo, executions: executions, window: window, now: time.Now}
}

func (s *taskService) Create(ctx context.Context, giverID int64, req models.CreateTaskRequest) (*models.Task, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidInput)
	}
	if req.PricePerUnit.IsNegative() {
		return nil, fmt.Errorf("%w: price_per_unit must not be negative", models.ErrInvalidInput)
	}
	now := s.now()
	task := &models.Task{
		GiverID:           giverID,
		Title:             strings.TrimSpace(req.Title),
		Platform:          strings.ToLower(strings.TrimSpace(req.Platform)),
		Service:           strings.ToLower(strings.TrimSpace(req.Service)),
		TargetURL:         strings.TrimSpace(req.TargetURL),
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		PricePerUnit:      req.PricePerUnit,
		Status:            models.TaskActive,
		AdminStatus:       models.AdminPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Store(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *taskService) GetAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return s.repo.FindAll(ctx, filter)
}

func (s *taskService) UpdateStatus(ctx context.Context, giverID, id int64, to models.TaskStatus) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.GiverID != giverID {
		return nil, models.ErrForbidden
	}
	if !canTransition(task.Status, to, TaskTransitions) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, task.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *taskService) Moderate(ctx context.Context, id int64, to models.AdminStatus) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(task.AdminStatus, to, ModerationTransitions) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, task.AdminStatus, to)
	}
	if err := s.repo.UpdateAdminStatus(ctx, id, to); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *taskService) Claim(ctx context.Context, userID, taskID int64) (*models.TaskExecution, error) {
	now := s.now()
	exec, err := s.executions.Claim(ctx, taskID, userID, now, now.Add(s.window))
	if err != nil {
		return nil, err
	}
	log.Printf("[task][claim][ok] exec=%d task=%d user=%d expires_at=%s",
		exec.ID, taskID, userID, exec.ExpiresAt.Format(time.RFC3339))
	return exec, nil
}

func (s *taskService) MyExecutions(ctx context.Context, userID int64) ([]models.TaskExecution, error) {
	return s.executions.ListByUser(ctx, userID)
}

func (s *taskService) SubmitProof(ctx context.Context, userID, executionID int64, proofURL string) (*models.TaskExecution, error) {
	exec, err := s.executions.FindByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	// чужие исполнения не раскрываем
	if exec.UserID != userID {
		return nil, fmt.Errorf("execution %d: %w", executionID, models.ErrNotFound)
	}
	now := s.now()
	if exec.ExpiredAt(now) {
		return nil, models.ErrReservationExpired
	}
	if !models.CanTransition(exec.Status, models.ExecutionSubmitted) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, exec.Status, models.ExecutionSubmitted)
	}
	return s.executions.SubmitProof(ctx, executionID, userID, strings.TrimSpace(proofURL), now)
}

// Review approves or rejects submitted proof. Rejection does not give the
// unit back to the task.
func (s *taskService) Review(ctx context.Context, giverID, executionID int64, approve bool) (*models.TaskExecution, error) {
	exec, err := s.executions.FindByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.FindByID(ctx, exec.TaskID)
	if err != nil {
		return nil, err
	}
	if task.GiverID != giverID {
		return nil, models.ErrForbidden
	}
	to := models.ExecutionRejected
	if approve {
		to = models.ExecutionApproved
	}
	if !models.CanTransition(exec.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, exec.Status, to)
	}
	return s.executions.Review(ctx, executionID, to, s.now())
}
