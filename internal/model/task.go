package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusToReview   Status = "to-review"
	StatusHold       Status = "hold"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
	// StatusOverdue is only ever derived from the deadline. It is never stored.
	StatusOverdue Status = "overdue"
)

// Settable reports whether a user may persist the status.
func (s Status) Settable() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusToReview, StatusHold, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Closed reports whether the task is finished and never reminded about.
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Parked reports whether the task is waiting on someone else.
func (s Status) Parked() bool {
	return s == StatusHold || s == StatusToReview
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Well-known locations. Any other value is accepted too.
const (
	LocationOffice = "BOSQU"
	LocationHome   = "RUMAH"
	LocationMobile = "HP GOJEK"
)

// Task represents a single item on the board.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      uint      `json:"-" gorm:"index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline" gorm:"index"`
	Status      Status    `json:"status" gorm:"size:16"`
	PIC         string    `json:"pic" gorm:"column:pic;index"`
	Priority    Priority  `json:"priority" gorm:"size:8"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// DisplayStatus is the status shown to users, with overdue derived at read time.
	DisplayStatus Status `json:"displayStatus" gorm:"-"`
}

// BeforeCreate assigns an id to new tasks.
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AfterFind folds legacy stored overdue values back into todo.
func (t *Task) AfterFind(_ *gorm.DB) error {
	if t.Status == StatusOverdue {
		t.Status = StatusTodo
	}
	return nil
}
