package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskmarket/internal/events"
	"taskmarket/internal/models"
	"taskmarket/internal/repositories"
)

// SweepResult summarizes one pass of the expiry sweep.
type SweepResult struct {
	Found     int           `json:"found"`
	Reclaimed int           `json:"reclaimed"`
	Skipped   int           `json:"skipped"` // no longer eligible when its turn came
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// TaskExpiryService gives abandoned reservations back to their tasks.
//
// Every eligible execution is reclaimed in its own transaction: the status
// flip to expired and the remaining_quantity increment commit together or
// not at all. A failing item is logged and left pending for the next pass;
// the rest of the batch still runs. The status predicate in the reclaim
// update makes a repeated or overlapping sweep a no-op for rows already
// handled.
type TaskExpiryService struct {
	executions  repositories.TaskExecutionRepository
	publisher   events.Publisher
	batchLimit  int
	itemTimeout time.Duration
	now         func() time.Time
}

// NewTaskExpiryService: batchLimit <= 0 means every eligible row per pass,
// itemTimeout <= 0 disables the per-item deadline. publisher may be nil.
func NewTaskExpiryService(executions repositories.TaskExecutionRepository, publisher events.Publisher, batchLimit int, itemTimeout time.Duration) *TaskExpiryService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &TaskExpiryService{
		executions:  executions,
		publisher:   publisher,
		batchLimit:  batchLimit,
		itemTimeout: itemTimeout,
		now:         time.Now,
	}
}

func (s *TaskExpiryService) WithClock(now func() time.Time) *TaskExpiryService {
	s.now = now
	return s
}

// Sweep runs one pass. The returned error is set only when the candidate
// query itself fails; per-item failures are counted in the result.
func (s *TaskExpiryService) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := s.now()
	res := SweepResult{StartedAt: now}

	expired, err := s.executions.ListExpired(ctx, now, s.batchLimit)
	if err != nil {
		log.Printf("[job][task-expiry][err] list expired: %v", err)
		res.Duration = time.Since(start)
		return res, fmt.Errorf("list expired executions: %w", err)
	}
	res.Found = len(expired)

	for i, exec := range expired {
		if err := ctx.Err(); err != nil {
			log.Printf("[job][task-expiry] stopped after %d of %d: %v", i, len(expired), err)
			break
		}
		ok, err := s.reclaim(ctx, exec, now)
		switch {
		case err != nil:
			res.Failed++
			log.Printf("[job][task-expiry][err] exec=%d task=%d: %v", exec.ID, exec.TaskID, err)
		case !ok:
			res.Skipped++
		default:
			res.Reclaimed++
			s.publish(ctx, exec, now)
		}
	}

	res.Duration = time.Since(start)
	log.Printf("[job][task-expiry] found=%d reclaimed=%d skipped=%d failed=%d took=%s",
		res.Found, res.Reclaimed, res.Skipped, res.Failed, res.Duration.Truncate(time.Millisecond))
	return res, nil
}

func (s *TaskExpiryService) reclaim(ctx context.Context, exec models.TaskExecution, now time.Time) (bool, error) {
	if s.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.itemTimeout)
		defer cancel()
	}
	return s.executions.Reclaim(ctx, exec, now)
}

func (s *TaskExpiryService) publish(ctx context.Context, exec models.TaskExecution, now time.Time) {
	ev := events.NewExecutionEvent(events.TypeExecutionExpired, exec.ID, exec.TaskID, exec.UserID, now)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("[job][task-expiry][warn] publish exec=%d: %v", exec.ID, err)
	}
}
