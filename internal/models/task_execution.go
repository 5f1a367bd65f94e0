package models

import "time"

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionSubmitted ExecutionStatus = "submitted"
	ExecutionApproved  ExecutionStatus = "approved"
	ExecutionRejected  ExecutionStatus = "rejected"
	ExecutionExpired   ExecutionStatus = "expired"
)

// ExecutionTransitions lists the allowed moves. Expiry is only reachable
// from pending and only through the sweep.
var ExecutionTransitions = map[ExecutionStatus]map[ExecutionStatus]bool{
	ExecutionPending:   {ExecutionSubmitted: true, ExecutionExpired: true},
	ExecutionSubmitted: {ExecutionApproved: true, ExecutionRejected: true},
	ExecutionApproved:  {},
	ExecutionRejected:  {},
	ExecutionExpired:   {},
}

func CanTransition(from, to ExecutionStatus) bool {
	nexts, ok := ExecutionTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

func (s ExecutionStatus) Terminal() bool {
	nexts, ok := ExecutionTransitions[s]
	return ok && len(nexts) == 0
}

// TaskExecution is one user's reservation of one unit of a task.
type TaskExecution struct {
	ID          int64           `json:"id" db:"id"`
	TaskID      int64           `json:"task_id" db:"task_id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Status      ExecutionStatus `json:"status" db:"status"`
	ProofURL    *string         `json:"proof_url,omitempty" db:"proof_url"`
	ReservedAt  time.Time       `json:"reserved_at" db:"reserved_at"`
	ExpiresAt   time.Time       `json:"expires_at" db:"expires_at"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ExpiredAt reports whether the reservation is past its deadline at now.
// The deadline itself counts as expired.
func (e *TaskExecution) ExpiredAt(now time.Time) bool {
	return e.Status == ExecutionPending && e.SubmittedAt == nil && !e.ExpiresAt.After(now)
}

type SubmitProofRequest struct {
	ProofURL string `json:"proof_url" binding:"required,url"`
}

type ReviewExecutionRequest struct {
	Approve bool `json:"approve"`
}
