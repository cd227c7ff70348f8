package models

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// ValidTaskStatuses enumerates the statuses a task may carry.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	StatusNotStarted: {},
	StatusInProgress: {},
	StatusCompleted:  {},
}

var ValidTaskPriorities = map[TaskPriority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

// ProgressNote is one entry in a task's ordered note sequence.
type ProgressNote struct {
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	ID               int64          `json:"id"`
	OwnerID          int64          `json:"owner_id"`
	AssigneeID       int64          `json:"assignee_id,omitempty"` // 0 means unassigned
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
	Priority         TaskPriority   `json:"priority"`
	Status           TaskStatus     `json:"status"`
	LockedForEditing bool           `json:"locked_for_editing"`
	AssigneeComments string         `json:"assignee_comments"`
	ProgressNotes    []ProgressNote `json:"progress_notes"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewTask validates the required fields and builds a task record. The id is
// assigned by the record store, not here.
func NewTask(ownerID int64, title string, startDate, endDate time.Time, priority TaskPriority, status TaskStatus) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: task owner is required", ErrValidation)
	}
	if startDate.IsZero() || endDate.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if _, ok := ValidTaskPriorities[priority]; !ok {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}
	if status == "" {
		status = StatusNotStarted
	}
	if _, ok := ValidTaskStatuses[status]; !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	now := time.Now()
	return &Task{
		OwnerID:          ownerID,
		Title:            title,
		StartDate:        startDate,
		EndDate:          endDate,
		Priority:         priority,
		Status:           status,
		LockedForEditing: status == StatusCompleted,
		ProgressNotes:    []ProgressNote{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}
