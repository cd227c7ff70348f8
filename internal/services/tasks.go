package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"taskboard/internal/deadline"
	"taskboard/internal/models"
	"taskboard/internal/policy"
	"taskboard/internal/store"
)

// TaskInput carries the fields a user supplies when creating a task.
type TaskInput struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	AssigneeID  int64               `json:"assignee_id"`
	StartDate   time.Time           `json:"start_date" binding:"required"`
	EndDate     time.Time           `json:"end_date" binding:"required"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title            *string              `json:"title"`
	Description      *string              `json:"description"`
	AssigneeID       *int64               `json:"assignee_id"`
	StartDate        *time.Time           `json:"start_date"`
	EndDate          *time.Time           `json:"end_date"`
	Priority         *models.TaskPriority `json:"priority"`
	Status           *models.TaskStatus   `json:"status"`
	AssigneeComments *string              `json:"assignee_comments"`
	AddNote          *string              `json:"add_note"`
}

// TaskView is a task together with the state derived for the viewing user.
// The classification is computed on read, never read from the record.
type TaskView struct {
	models.Task
	Classification deadline.Classification `json:"classification"`
	Permissions    policy.Visibility       `json:"permissions"`
}

// TaskFilter narrows ListTasks output.
type TaskFilter struct {
	Status   models.TaskStatus
	Priority models.TaskPriority
	Urgency  deadline.Urgency
}

type TaskService interface {
	CreateTask(ctx context.Context, actor *models.User, input TaskInput) (*TaskView, error)
	GetTask(actor *models.User, id int64) (*TaskView, error)
	ListTasks(actor *models.User, filter TaskFilter) []TaskView
	UpdateTask(ctx context.Context, actor *models.User, id int64, patch TaskPatch) (*TaskView, error)
	DeleteTask(ctx context.Context, actor *models.User, id int64) error
}

type TaskServiceImpl struct {
	store *store.Store
}

func NewTaskService(s *store.Store) *TaskServiceImpl {
	return &TaskServiceImpl{store: s}
}

func (s *TaskServiceImpl) view(task models.Task, actor *models.User) *TaskView {
	return &TaskView{
		Task:           task,
		Classification: deadline.ClassifyTask(&task, time.Now()),
		Permissions:    policy.TaskVisibility(&task, actor),
	}
}

// CreateTask validates the input, assigns the creator as owner, stamps both
// dates and persists. A task created already Completed starts locked.
func (s *TaskServiceImpl) CreateTask(ctx context.Context, actor *models.User, input TaskInput) (*TaskView, error) {
	if decision := policy.CanCreateTask(actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}

	task, err := models.NewTask(actor.ID, input.Title, input.StartDate, input.EndDate, input.Priority, input.Status)
	if err != nil {
		return nil, err
	}
	task.Description = input.Description

	if input.AssigneeID != 0 {
		if _, err := s.store.UserByID(input.AssigneeID); err != nil {
			return nil, fmt.Errorf("assignee: %w", err)
		}
		task.AssigneeID = input.AssigneeID
	}

	created, err := s.store.AddTask(ctx, *task)
	if err != nil {
		return nil, err
	}
	return s.view(created, actor), nil
}

func (s *TaskServiceImpl) GetTask(actor *models.User, id int64) (*TaskView, error) {
	task, err := s.store.TaskByID(id)
	if err != nil {
		return nil, err
	}
	if !policy.TaskVisibility(&task, actor).IsVisible {
		return nil, fmt.Errorf("task %d is not visible: %w", id, models.ErrAccessDenied)
	}
	return s.view(task, actor), nil
}

// ListTasks returns the tasks visible to the actor, newest first, optionally
// narrowed by status, priority or derived urgency.
func (s *TaskServiceImpl) ListTasks(actor *models.User, filter TaskFilter) []TaskView {
	now := time.Now()
	views := []TaskView{}
	for _, task := range s.store.Tasks() {
		visibility := policy.TaskVisibility(&task, actor)
		if !visibility.IsVisible {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		classification := deadline.ClassifyTask(&task, now)
		if filter.Urgency != "" && classification.Urgency != filter.Urgency {
			continue
		}
		views = append(views, TaskView{Task: task, Classification: classification, Permissions: visibility})
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}

// UpdateTask applies a partial update. A status transition into Completed
// forces the lock in the same persisted write; no other field in the patch
// can override it.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, actor *models.User, id int64, patch TaskPatch) (*TaskView, error) {
	task, err := s.store.TaskByID(id)
	if err != nil {
		return nil, err
	}

	if decision := policy.CanEditTask(&task, actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, fmt.Errorf("%w: task title is required", models.ErrValidation)
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.AssigneeID != nil {
		if *patch.AssigneeID != 0 {
			if _, err := s.store.UserByID(*patch.AssigneeID); err != nil {
				return nil, fmt.Errorf("assignee: %w", err)
			}
		}
		task.AssigneeID = *patch.AssigneeID
	}
	if patch.StartDate != nil {
		task.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		task.EndDate = *patch.EndDate
	}
	if task.EndDate.Before(task.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", models.ErrValidation)
	}
	if patch.Priority != nil {
		if _, ok := models.ValidTaskPriorities[*patch.Priority]; !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		if _, ok := models.ValidTaskStatuses[*patch.Status]; !ok {
			return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, *patch.Status)
		}
		if *patch.Status == models.StatusCompleted && task.Status != models.StatusCompleted {
			task.LockedForEditing = true
		}
		task.Status = *patch.Status
	}
	if patch.AssigneeComments != nil {
		task.AssigneeComments = *patch.AssigneeComments
	}
	if patch.AddNote != nil && *patch.AddNote != "" {
		task.ProgressNotes = append(task.ProgressNotes, models.ProgressNote{
			AuthorID:  actor.ID,
			Text:      *patch.AddNote,
			CreatedAt: time.Now(),
		})
	}

	task.UpdatedAt = time.Now()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return s.view(task, actor), nil
}

// DeleteTask removes the task without cascading to edit-requests; requests
// referencing it degrade to an "Unknown Task" placeholder in read paths.
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, actor *models.User, id int64) error {
	task, err := s.store.TaskByID(id)
	if err != nil {
		return err
	}
	if decision := policy.CanDeleteTask(&task, actor); !decision.Allowed {
		return fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}
	return s.store.DeleteTask(ctx, id)
}
