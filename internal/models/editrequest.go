package models

import (
	"fmt"
	"strings"
	"time"
)

type EditRequestStatus string

const (
	EditRequestPending  EditRequestStatus = "pending"
	EditRequestApproved EditRequestStatus = "approved"
	EditRequestRejected EditRequestStatus = "rejected"
)

// EditRequest asks the owner of a locked, completed task to lift the lock so
// the assignee can edit it again. pending is the only non-terminal state.
type EditRequest struct {
	ID           int64             `json:"id"`
	TaskID       int64             `json:"task_id"`
	RequesterID  int64             `json:"requester_id"`
	AssignedBy   int64             `json:"assigned_by"` // the task owner who must respond
	Reason       string            `json:"reason"`
	Status       EditRequestStatus `json:"status"`
	RequestDate  time.Time         `json:"request_date"`
	ResponseDate *time.Time        `json:"response_date,omitempty"`
	AdminNotes   string            `json:"admin_notes"`
}

func NewEditRequest(taskID, requesterID, ownerID int64, reason string) (*EditRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a reason is required to request editing", ErrValidation)
	}
	if taskID <= 0 || requesterID <= 0 {
		return nil, fmt.Errorf("%w: task and requester are required", ErrValidation)
	}

	return &EditRequest{
		TaskID:      taskID,
		RequesterID: requesterID,
		AssignedBy:  ownerID,
		Reason:      reason,
		Status:      EditRequestPending,
		RequestDate: time.Now(),
	}, nil
}

func (r *EditRequest) IsPending() bool {
	return r.Status == EditRequestPending
}
