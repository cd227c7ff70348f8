// Package policy is the pure predicate layer deciding what a user may see and
// do. Every mutating operation obtains a Decision before touching the record
// store and aborts when it is denied; nothing here has side effects.
package policy

import (
	"time"

	"taskboard/internal/models"
)

// Visibility is the per-task view of a single user, consumed by every
// listing, filtering and rendering path.
type Visibility struct {
	IsOwnerOrAssignee bool `json:"is_owner_or_assignee"`
	IsVisible         bool `json:"is_visible"`
	IsEditable        bool `json:"is_editable"`
	CanRequestEdit    bool `json:"can_request_edit"`
}

// TaskVisibility derives the visibility of one task for one user. Admins see
// everything; regular users see only tasks they created or are assigned to.
// Only the assignee of a locked, completed task may ask to unlock it.
func TaskVisibility(task *models.Task, user *models.User) Visibility {
	ownerOrAssignee := task.OwnerID == user.ID || (task.AssigneeID != 0 && task.AssigneeID == user.ID)
	visible := user.IsAdmin() || ownerOrAssignee

	return Visibility{
		IsOwnerOrAssignee: ownerOrAssignee,
		IsVisible:         visible,
		IsEditable:        visible && (ownerOrAssignee || user.IsAdmin()) && !task.LockedForEditing,
		CanRequestEdit: task.Status == models.StatusCompleted &&
			task.AssigneeID != 0 && task.AssigneeID == user.ID &&
			task.LockedForEditing,
	}
}

// Decision is the outcome of an explicit authorization check. The caller must
// honor it; there is no deeper trust boundary behind it.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason, Timestamp: time.Now()}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason, Timestamp: time.Now()}
}

// CanCreateTask allows any authenticated user to create tasks they will own.
func CanCreateTask(user *models.User) Decision {
	if user == nil {
		return deny("not authenticated")
	}
	return allow("task creation allowed")
}

// CanEditTask gates task updates. Locked tasks are not editable by anyone
// until an edit request is approved, admins included.
func CanEditTask(task *models.Task, user *models.User) Decision {
	v := TaskVisibility(task, user)
	if !v.IsVisible {
		return deny("user cannot see this task")
	}
	if task.LockedForEditing {
		return deny("task is locked for editing")
	}
	if !v.IsEditable {
		return deny("user may not edit this task")
	}
	return allow("task owner, assignee or admin may edit")
}

// CanDeleteTask restricts deletion to the task owner and admins.
func CanDeleteTask(task *models.Task, user *models.User) Decision {
	if user.IsAdmin() || task.OwnerID == user.ID {
		return allow("owner or admin may delete")
	}
	return deny("only the task owner or an admin may delete a task")
}

// CanRequestEdit gates edit-request submission: only the assignee of a
// locked, completed task may ask its owner to unlock it.
func CanRequestEdit(task *models.Task, user *models.User) Decision {
	v := TaskVisibility(task, user)
	if !v.CanRequestEdit {
		return deny("only the assignee of a locked completed task may request editing")
	}
	return allow("assignee may request editing")
}

// CanRespondToEditRequest gates approve/reject: the owner the request was
// assigned to, or any admin.
func CanRespondToEditRequest(request *models.EditRequest, user *models.User) Decision {
	if user.IsAdmin() || request.AssignedBy == user.ID {
		return allow("assigned owner or admin may respond")
	}
	return deny("only the task owner or an admin may respond to this request")
}

// RequireAdmin gates team-wide views and user management.
func RequireAdmin(user *models.User) Decision {
	if user.IsAdmin() {
		return allow("admin access")
	}
	return deny("admin role required")
}
