// internal/models/task.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus is the giver-controlled lifecycle of a task.
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskPaused    TaskStatus = "paused"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// AdminStatus is the moderation verdict; only approved tasks can be claimed.
type AdminStatus string

const (
	AdminPending  AdminStatus = "pending"
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"
)

// Task is a purchased batch of engagement units (likes, follows, views).
// RemainingQuantity is shared between claims (decrement) and the expiry
// sweep (increment) and is only ever changed inside a transaction.
type Task struct {
	ID                int64           `json:"id" db:"id"`
	GiverID           int64           `json:"giver_id" db:"giver_id"`
	Title             string          `json:"title" db:"title"`
	Platform          string          `json:"platform" db:"platform"`
	Service           string          `json:"service" db:"service"`
	TargetURL         string          `json:"target_url" db:"target_url"`
	Quantity          int             `json:"quantity" db:"quantity"`
	RemainingQuantity int             `json:"remaining_quantity" db:"remaining_quantity"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	Status            TaskStatus      `json:"status" db:"status"`
	AdminStatus       AdminStatus     `json:"admin_status" db:"admin_status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

func (t *Task) Claimable() bool {
	return t.Status == TaskActive && t.AdminStatus == AdminApproved && t.RemainingQuantity > 0
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	GiverID     *int64
	Platform    *string
	Status      *TaskStatus
	AdminStatus *AdminStatus
	Limit       int
	Offset      int
}

type CreateTaskRequest struct {
	Title        string          `json:"title" binding:"required"`
	Platform     string          `json:"platform" binding:"required"`
	Service      string          `json:"service" binding:"required"`
	TargetURL    string          `json:"target_url" binding:"required,url"`
	Quantity     int             `json:"quantity" binding:"required,min=1"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

type ModerateTaskRequest struct {
	AdminStatus AdminStatus `json:"admin_status" binding:"required"`
}
