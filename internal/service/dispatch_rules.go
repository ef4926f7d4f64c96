package service

import (
	"fmt"
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// Trigger identifies the transition that produced a notification.
type Trigger string

const (
	TriggerCreated      Trigger = "task_created"
	TriggerStatusUpdate Trigger = "status_update"
	TriggerCompleted    Trigger = "complete"
	TriggerOverdue      Trigger = "mark_overdue"
)

// Outgoing is one message the dispatch rules decided to send.
type Outgoing struct {
	Recipient string
	Subject   string
	Body      string
	Meta      map[string]any
}

// DispatchInput is everything the rules look at. Supervisors is the
// Admin/Manager roster read at dispatch time; Assignee is the employee the
// task belongs to.
type DispatchInput struct {
	Trigger     Trigger
	Task        *domain.Task
	Actor       *domain.User
	Assignee    *domain.User
	Supervisors []domain.User
}

// BuildNotifications maps a transition to its ordered list of messages. It
// performs no I/O.
func BuildNotifications(in DispatchInput) []Outgoing {
	if in.Task == nil {
		return nil
	}
	switch in.Trigger {
	case TriggerCreated:
		return assignmentNotification(in)
	case TriggerStatusUpdate:
		return statusUpdateNotifications(in)
	case TriggerCompleted:
		return completionNotifications(in)
	case TriggerOverdue:
		return overdueNotifications(in)
	}
	return nil
}

func assignmentNotification(in DispatchInput) []Outgoing {
	if in.Assignee == nil || in.Assignee.Email == "" {
		return nil
	}
	task := in.Task
	return []Outgoing{{
		Recipient: in.Assignee.Email,
		Subject:   "New Task Assigned",
		Body: fmt.Sprintf("You have been assigned a new task: %s\nDeadline: %s\n",
			task.Title, formatDeadline(task.Deadline)),
		Meta: map[string]any{
			"status":      string(domain.TaskStatusAssigned),
			"title":       task.Title,
			"task_id":     task.ID,
			"employee_id": in.Assignee.EmployeeID,
			"username":    in.Assignee.Username,
		},
	}}
}

func statusUpdateNotifications(in DispatchInput) []Outgoing {
	status := in.Task.Status
	if status != domain.TaskStatusInProgress && status != domain.TaskStatusDone {
		return nil
	}
	employeeID, username := actorIdentity(in.Actor)
	body := fmt.Sprintf("Employee ID: %s\nName: %s\nTask: %s\nStatus: %s",
		employeeID, username, in.Task.Title, status)
	return toSupervisors(in.Supervisors, fmt.Sprintf("Task %s Notification", status), body, actorMeta(in.Task, in.Actor))
}

func completionNotifications(in DispatchInput) []Outgoing {
	employeeID, username := actorIdentity(in.Actor)
	meta := actorMeta(in.Task, in.Actor)
	body := fmt.Sprintf("Employee ID: %s\nName: %s\nTask '%s' has been submitted (Done).",
		employeeID, username, in.Task.Title)

	out := toSupervisors(in.Supervisors, "Task Submitted (Done)", body, meta)
	if in.Actor != nil && in.Actor.Email != "" {
		out = append(out, Outgoing{
			Recipient: in.Actor.Email,
			Subject:   "Task Completed",
			Body:      fmt.Sprintf("You have completed: %s!", in.Task.Title),
			Meta:      copyMeta(meta),
		})
	}
	return out
}

func overdueNotifications(in DispatchInput) []Outgoing {
	task := in.Task
	meta := map[string]any{
		"status":      string(domain.TaskStatusOverdue),
		"task_id":     task.ID,
		"title":       task.Title,
		"employee_id": task.AssignedTo,
	}
	body := fmt.Sprintf("Task '%s' assigned to Employee ID: %s was not completed before the deadline.",
		task.Title, task.AssignedTo)
	return toSupervisors(in.Supervisors, "Task Overdue Alert", body, meta)
}

func toSupervisors(supervisors []domain.User, subject, body string, meta map[string]any) []Outgoing {
	out := make([]Outgoing, 0, len(supervisors))
	for _, s := range supervisors {
		if !s.IsSupervisor() || s.Email == "" {
			continue
		}
		out = append(out, Outgoing{Recipient: s.Email, Subject: subject, Body: body, Meta: copyMeta(meta)})
	}
	return out
}

func actorMeta(task *domain.Task, actor *domain.User) map[string]any {
	employeeID, username := actorIdentity(actor)
	return map[string]any{
		"status":      string(task.Status),
		"task_id":     task.ID,
		"title":       task.Title,
		"employee_id": employeeID,
		"username":    username,
	}
}

func actorIdentity(actor *domain.User) (employeeID, username string) {
	if actor == nil {
		return "", ""
	}
	return actor.EmployeeID, actor.Username
}

func copyMeta(meta map[string]any) map[string]any {
	cp := make(map[string]any, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	return cp
}

func formatDeadline(deadline time.Time) string {
	if deadline.IsZero() {
		return "none"
	}
	return deadline.UTC().Format(time.RFC3339)
}
