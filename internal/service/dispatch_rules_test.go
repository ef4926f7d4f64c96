package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/domain"
)

func rulesRoster() (admin, manager, employee domain.User) {
	admin = domain.User{Username: "alice", Email: "admin@example.com", Role: domain.RoleAdmin}
	manager = domain.User{Username: "mark", Email: "manager@example.com", Role: domain.RoleManager}
	employee = domain.User{Username: "erin", Email: "erin@example.com", Role: domain.RoleEmployee, EmployeeID: "TMS001"}
	return
}

func TestBuildNotificationsPerTrigger(t *testing.T) {
	admin, manager, employee := rulesRoster()
	supervisors := []domain.User{admin, manager}
	task := &domain.Task{
		ID:         "6f1c0a4e-8a51-4d8e-9d59-5b7d1f0f8a11",
		Title:      "Restock shelves",
		AssignedTo: "TMS001",
		Status:     domain.TaskStatusDone,
		Deadline:   time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		in         DispatchInput
		recipients []string
		subject    string
	}{
		{
			name:       "created goes to the assignee",
			in:         DispatchInput{Trigger: TriggerCreated, Task: task, Actor: &manager, Assignee: &employee},
			recipients: []string{"erin@example.com"},
			subject:    "New Task Assigned",
		},
		{
			name:       "status update goes to supervisors",
			in:         DispatchInput{Trigger: TriggerStatusUpdate, Task: task, Actor: &employee, Supervisors: supervisors},
			recipients: []string{"admin@example.com", "manager@example.com"},
			subject:    "Task Done Notification",
		},
		{
			name:       "completion adds a receipt",
			in:         DispatchInput{Trigger: TriggerCompleted, Task: task, Actor: &employee, Supervisors: supervisors},
			recipients: []string{"admin@example.com", "manager@example.com", "erin@example.com"},
			subject:    "Task Submitted (Done)",
		},
		{
			name:       "overdue goes to supervisors only",
			in:         DispatchInput{Trigger: TriggerOverdue, Task: task, Actor: &employee, Supervisors: supervisors},
			recipients: []string{"admin@example.com", "manager@example.com"},
			subject:    "Task Overdue Alert",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := BuildNotifications(tc.in)
			require.Len(t, out, len(tc.recipients))
			for i, msg := range out {
				assert.Equal(t, tc.recipients[i], msg.Recipient)
				assert.Contains(t, msg.Body, task.Title)
				assert.Equal(t, task.ID, msg.Meta["task_id"])
			}
			assert.Equal(t, tc.subject, out[0].Subject)
		})
	}
}

func TestStatusUpdateToAssignedProducesNothing(t *testing.T) {
	admin, _, employee := rulesRoster()
	task := &domain.Task{ID: "t", Title: "x", Status: domain.TaskStatusAssigned}

	out := BuildNotifications(DispatchInput{
		Trigger:     TriggerStatusUpdate,
		Task:        task,
		Actor:       &employee,
		Supervisors: []domain.User{admin},
	})
	assert.Empty(t, out)
}

func TestSupervisorListSkipsEmployeesAndBlankEmails(t *testing.T) {
	admin, _, employee := rulesRoster()
	blank := domain.User{Username: "ghost", Role: domain.RoleManager}
	task := &domain.Task{ID: "t", Title: "x", AssignedTo: "TMS001", Status: domain.TaskStatusOverdue}

	out := BuildNotifications(DispatchInput{
		Trigger:     TriggerOverdue,
		Task:        task,
		Supervisors: []domain.User{admin, employee, blank},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "admin@example.com", out[0].Recipient)
	assert.Equal(t, "Overdue", out[0].Meta["status"])
	assert.Equal(t, "TMS001", out[0].Meta["employee_id"])
}

func TestMetaIsNotSharedBetweenMessages(t *testing.T) {
	admin, manager, employee := rulesRoster()
	task := &domain.Task{ID: "t", Title: "x", Status: domain.TaskStatusDone}

	out := BuildNotifications(DispatchInput{
		Trigger:     TriggerCompleted,
		Task:        task,
		Actor:       &employee,
		Supervisors: []domain.User{admin, manager},
	})
	require.Len(t, out, 3)
	out[0].Meta["status"] = "mutated"
	assert.Equal(t, "Done", out[1].Meta["status"])
	assert.Equal(t, "Done", out[2].Meta["status"])
}
