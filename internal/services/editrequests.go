package services

import (
	"context"
	"fmt"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/policy"
	"taskboard/internal/store"
)

// UnknownTaskTitle is rendered when a request references a deleted task.
const UnknownTaskTitle = "Unknown Task"

// EditRequestView pairs a request with the title of its target task, or the
// placeholder when the task has since been deleted.
type EditRequestView struct {
	models.EditRequest
	TaskTitle string `json:"task_title"`
}

type EditRequestService interface {
	Submit(ctx context.Context, actor *models.User, taskID int64, reason string) (*models.EditRequest, error)
	Approve(ctx context.Context, actor *models.User, requestID int64) (*models.EditRequest, error)
	Reject(ctx context.Context, actor *models.User, requestID int64, notes string) (*models.EditRequest, error)
	ListForUser(actor *models.User) []EditRequestView
}

type EditRequestServiceImpl struct {
	store *store.Store
}

func NewEditRequestService(s *store.Store) *EditRequestServiceImpl {
	return &EditRequestServiceImpl{store: s}
}

// Submit creates a pending unlock request for a locked, completed task. At
// most one pending request per (task, requester) may exist; the record
// store enforces that under its write lock.
func (s *EditRequestServiceImpl) Submit(ctx context.Context, actor *models.User, taskID int64, reason string) (*models.EditRequest, error) {
	task, err := s.store.TaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if decision := policy.CanRequestEdit(&task, actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}

	request, err := models.NewEditRequest(taskID, actor.ID, task.OwnerID, reason)
	if err != nil {
		return nil, err
	}

	created, err := s.store.AddEditRequest(ctx, *request)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Approve moves the request to its terminal approved state and unlocks the
// task in the same persisted write. Only the assigned owner or an admin may
// approve; the service re-verifies instead of trusting the caller context.
func (s *EditRequestServiceImpl) Approve(ctx context.Context, actor *models.User, requestID int64) (*models.EditRequest, error) {
	request, err := s.store.EditRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if decision := policy.CanRespondToEditRequest(&request, actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}
	if !request.IsPending() {
		return nil, fmt.Errorf("request is already %s: %w", request.Status, models.ErrConflict)
	}

	now := time.Now()
	request.Status = models.EditRequestApproved
	request.ResponseDate = &now

	// The referenced task may have been deleted; the approval still lands,
	// there is just no lock left to lift.
	task, err := s.store.TaskByID(request.TaskID)
	if err != nil {
		if uerr := s.store.UpdateEditRequest(ctx, request); uerr != nil {
			return nil, uerr
		}
		return &request, nil
	}

	task.LockedForEditing = false
	task.UpdatedAt = now
	if err := s.store.ResolveEditRequest(ctx, request, &task); err != nil {
		return nil, err
	}
	return &request, nil
}

// Reject moves the request to its terminal rejected state without touching
// the task's lock.
func (s *EditRequestServiceImpl) Reject(ctx context.Context, actor *models.User, requestID int64, notes string) (*models.EditRequest, error) {
	request, err := s.store.EditRequestByID(requestID)
	if err != nil {
		return nil, err
	}
	if decision := policy.CanRespondToEditRequest(&request, actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}
	if !request.IsPending() {
		return nil, fmt.Errorf("request is already %s: %w", request.Status, models.ErrConflict)
	}

	now := time.Now()
	request.Status = models.EditRequestRejected
	request.ResponseDate = &now
	request.AdminNotes = notes

	if err := s.store.ResolveEditRequest(ctx, request, nil); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListForUser returns the requests the actor may see: admins see all, owners
// see requests assigned to them, requesters see their own submissions.
func (s *EditRequestServiceImpl) ListForUser(actor *models.User) []EditRequestView {
	views := []EditRequestView{}
	for _, request := range s.store.EditRequests() {
		if !actor.IsAdmin() && request.AssignedBy != actor.ID && request.RequesterID != actor.ID {
			continue
		}

		title := UnknownTaskTitle
		if task, err := s.store.TaskByID(request.TaskID); err == nil {
			title = task.Title
		}
		views = append(views, EditRequestView{EditRequest: request, TaskTitle: title})
	}
	return views
}
