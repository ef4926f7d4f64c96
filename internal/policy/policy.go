// Package policy holds the role and ownership rules that gate every task
// operation. All functions are pure: they inspect the actor and, where
// relevant, the task snapshot, and return nil or a FORBIDDEN domain error.
package policy

import (
	"github.com/spec-kit/task-service/internal/domain"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionCreate       Action = "create"
	ActionDelete       Action = "delete"
	ActionFullUpdate   Action = "full_update"
	ActionStatusUpdate Action = "status_update"
	ActionComplete     Action = "complete"
	ActionView         Action = "view"
	ActionMarkOverdue  Action = "mark_overdue"
	ActionViewHistory  Action = "view_history"
)

// Authorize evaluates action for actor against task. Task may be nil for
// actions that do not depend on a specific task.
func Authorize(actor *domain.User, action Action, task *domain.Task) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	switch action {
	case ActionCreate, ActionDelete, ActionFullUpdate, ActionViewHistory:
		return RequireSupervisor(actor)
	case ActionStatusUpdate:
		return CanUpdateOwnStatus(actor, task)
	case ActionComplete:
		return CanComplete(actor, task)
	case ActionView:
		return CanView(actor, task)
	case ActionMarkOverdue:
		return nil
	default:
		return apperrors.NewForbidden("unknown action")
	}
}

// RequireSupervisor allows only Admin and Manager.
func RequireSupervisor(actor *domain.User) error {
	if !actor.IsSupervisor() {
		return apperrors.NewForbidden("admin or manager role required")
	}
	return nil
}

// RequireEmployee allows only Employee. It is evaluated before the task is
// looked up, so a non-employee gets FORBIDDEN even for unknown ids.
func RequireEmployee(actor *domain.User) error {
	if !actor.IsEmployee() {
		return apperrors.NewForbidden("only assigned employees may do this")
	}
	return nil
}

// IsAssignee reports whether task is assigned to actor.
func IsAssignee(actor *domain.User, task *domain.Task) bool {
	return actor != nil && task != nil && actor.EmployeeID != "" && task.AssignedTo == actor.EmployeeID
}

// CanUpdateOwnStatus gates the status-only update made by an assignee.
func CanUpdateOwnStatus(actor *domain.User, task *domain.Task) error {
	if err := RequireEmployee(actor); err != nil {
		return err
	}
	if task != nil && task.Status == domain.TaskStatusOverdue {
		return apperrors.NewForbidden("task is overdue and cannot be updated by employee")
	}
	if !IsAssignee(actor, task) {
		return apperrors.NewForbidden("can only update your own tasks")
	}
	return nil
}

// CanComplete gates the explicit completion of a task. The overdue lock
// does not apply: an assignee may still submit an Overdue task.
func CanComplete(actor *domain.User, task *domain.Task) error {
	if err := RequireEmployee(actor); err != nil {
		return err
	}
	if !IsAssignee(actor, task) {
		return apperrors.NewForbidden("not authorized for this task")
	}
	return nil
}

// CanView lets supervisors see everything and employees only their own tasks.
func CanView(actor *domain.User, task *domain.Task) error {
	if actor.IsSupervisor() {
		return nil
	}
	if actor.IsEmployee() && IsAssignee(actor, task) {
		return nil
	}
	return apperrors.NewForbidden("not authorized")
}

// ListScope returns the assignee filter a listing must apply for actor.
// Supervisors get nil (no restriction).
func ListScope(actor *domain.User) *string {
	if actor.IsSupervisor() {
		return nil
	}
	id := actor.EmployeeID
	return &id
}
