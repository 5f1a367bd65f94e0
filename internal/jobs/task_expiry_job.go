package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskmarket/internal/services"
)

var (
	ErrAlreadyStarted = errors.New("job already started")
	ErrAlreadyRunning = errors.New("sweep already running")
)

// Sweeper is one pass of the expiry sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (services.SweepResult, error)
}

type Stats struct {
	Schedule   string                `json:"schedule"`
	Started    bool                  `json:"started"`
	Running    bool                  `json:"running"`
	Runs       int64                 `json:"runs"`
	Failures   int64                 `json:"failures"`
	LastRunAt  *time.Time            `json:"last_run_at,omitempty"`
	LastResult *services.SweepResult `json:"last_result,omitempty"`
	LastError  string                `json:"last_error,omitempty"`
}

// TaskExpiryJob triggers the expiry sweep on a cron schedule. Nothing runs
// until Start is called; Stop waits for an in-flight pass to finish.
type TaskExpiryJob struct {
	sweeper  Sweeper
	schedule string

	runMu sync.Mutex // held for the duration of one pass

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	stats  Stats
}

func NewTaskExpiryJob(sweeper Sweeper, schedule string) *TaskExpiryJob {
	return &TaskExpiryJob{
		sweeper:  sweeper,
		schedule: schedule,
		stats:    Stats{Schedule: schedule},
	}
}

func (j *TaskExpiryJob) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return ErrAlreadyStarted
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			// next tick retries
			log.Printf("[job][task-expiry][err] %v", err)
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule %q: %w", j.schedule, err)
	}

	c.Start()
	j.cron, j.cancel = c, cancel
	j.stats.Started = true
	log.Printf("[job][task-expiry] started schedule=%q", j.schedule)
	return nil
}

// Stop cancels the running pass, if any, and waits for it until ctx is done.
func (j *TaskExpiryJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	c, cancel := j.cron, j.cancel
	j.cron, j.cancel = nil, nil
	j.stats.Started = false
	j.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	select {
	case <-c.Stop().Done():
		log.Printf("[job][task-expiry] stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop task expiry job: %w", ctx.Err())
	}
}

// RunOnce performs one pass now. It returns ErrAlreadyRunning instead of
// queueing behind a pass that is still in progress.
func (j *TaskExpiryJob) RunOnce(ctx context.Context) (services.SweepResult, error) {
	if !j.runMu.TryLock() {
		return services.SweepResult{}, ErrAlreadyRunning
	}
	defer j.runMu.Unlock()

	j.setRunning(true)
	res, err := j.sweeper.Sweep(ctx)
	j.record(res, err)
	return res, err
}

func (j *TaskExpiryJob) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *TaskExpiryJob) setRunning(v bool) {
	j.mu.Lock()
	j.stats.Running = v
	j.mu.Unlock()
}

func (j *TaskExpiryJob) record(res services.SweepResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	at := res.StartedAt
	j.stats.Running = false
	j.stats.Runs++
	j.stats.LastRunAt = &at
	j.stats.LastResult = &res
	j.stats.LastError = ""
	if err != nil {
		j.stats.Failures++
		j.stats.LastError = err.Error()
	}
}
