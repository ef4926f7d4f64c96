package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/policy"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// NotificationSender is satisfied by Notifier.
type NotificationSender interface {
	Send(ctx context.Context, msg Message) (*domain.NotificationRecord, error)
}

// TaskService runs the task lifecycle: it authorizes each operation, applies
// it through the store's conditional primitives and dispatches the resulting
// notifications.
type TaskService struct {
	tasks      repository.TaskRepository
	users      repository.UserRepository
	history    repository.TaskHistoryRepository
	notifier   NotificationSender
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	failFast   bool
	now        func() time.Time
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo    repository.TaskRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TaskHistoryRepository
	Notifier    NotificationSender
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// FailFast turns any failed send into a NOTIFICATION_DELIVERY_FAILED
	// error once every send has been attempted.
	FailFast bool
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	AssignedTo  []string
	AssignToAll bool
	Priority    domain.TaskPriority
	Status      domain.TaskStatus
	Deadline    time.Time
}

// TaskListFilter narrows listings within the caller's visible set.
type TaskListFilter struct {
	Statuses []domain.TaskStatus
	Limit    int
	Offset   int
}

// TransitionResult is the outcome of a mutating operation.
type TransitionResult struct {
	Task          *domain.Task
	Notifications DispatchReport
}

// CreateResult lists the tasks inserted by one create call.
type CreateResult struct {
	Tasks         []domain.Task
	Notifications DispatchReport
}

// OverdueResult reports whether a mark-overdue signal changed anything.
type OverdueResult struct {
	Task          *domain.Task
	Applied       bool
	Message       string
	Notifications DispatchReport
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		failFast:   deps.FailFast,
		now:        time.Now,
	}
}

// CreateTasks inserts one task per resolved employee in a single
// transaction and notifies each assignee.
func (s *TaskService) CreateTasks(ctx context.Context, actor *domain.User, input TaskCreateInput) (*CreateResult, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, nil); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	status := input.Status
	if status == "" {
		status = domain.TaskStatusAssigned
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	employees, err := s.resolveAssignees(ctx, input)
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(employees))
	for _, emp := range employees {
		tasks = append(tasks, &domain.Task{
			Title:       input.Title,
			Description: input.Description,
			AssignedTo:  emp.EmployeeID,
			Priority:    priority,
			Status:      status,
			Deadline:    input.Deadline,
			CreatedBy:   actor.Username,
			Attributes:  map[string]any{},
		})
	}
	if err := s.tasks.CreateMany(ctx, tasks); err != nil {
		return nil, err
	}

	result := &CreateResult{Tasks: make([]domain.Task, 0, len(tasks)), Notifications: newDispatchReport()}
	for i, task := range tasks {
		result.Tasks = append(result.Tasks, *task)
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTaskCreated,
			TaskID:  task.ID,
			ActorID: actor.ID,
			Payload: events.TaskCreatedPayload{
				Title:      task.Title,
				AssignedTo: task.AssignedTo,
				Priority:   task.Priority,
				Status:     task.Status,
			},
		})
		assignee := employees[i]
		outgoing := BuildNotifications(DispatchInput{
			Trigger:  TriggerCreated,
			Task:     task,
			Actor:    actor,
			Assignee: &assignee,
		})
		result.Notifications.merge(s.dispatch(ctx, TriggerCreated, task.ID, outgoing))
	}
	return result, s.deliveryOutcome(result.Notifications, map[string]any{"task_ids": taskIDs(result.Tasks)})
}

func (s *TaskService) resolveAssignees(ctx context.Context, input TaskCreateInput) ([]domain.User, error) {
	filter := repository.UserFilter{
		Roles:        []domain.Role{domain.RoleEmployee},
		VerifiedOnly: true,
	}

	if input.AssignToAll {
		employees, err := s.users.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		employees = slices.DeleteFunc(employees, func(u domain.User) bool { return u.EmployeeID == "" })
		if len(employees) == 0 {
			return nil, apperrors.NewValidationError("no verified employees to assign", nil)
		}
		return employees, nil
	}

	ids := make([]string, 0, len(input.AssignedTo))
	for _, id := range input.AssignedTo {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("assigned_to must list at least one employee", map[string]any{"field": "assigned_to"})
	}

	filter.EmployeeIDs = ids
	found, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(found))
	for _, u := range found {
		byID[u.EmployeeID] = u
	}

	var unknown []string
	employees := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		employees = append(employees, u)
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewValidationError("assigned user(s) must be verified employees", map[string]any{
			"unknown_employee_ids": unknown,
		})
	}
	return employees, nil
}

// GetTask returns a task visible to actor.
func (s *TaskService) GetTask(ctx context.Context, actor *domain.User, taskID string) (*domain.Task, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionView, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns every task for supervisors and only their own for
// employees.
func (s *TaskService) ListTasks(ctx context.Context, actor *domain.User, filter TaskListFilter) ([]domain.Task, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsSupervisor() && !actor.IsEmployee() {
		return nil, apperrors.NewForbidden("not authorized")
	}
	return s.tasks.List(ctx, repository.TaskFilter{
		AssignedTo: policy.ListScope(actor),
		Statuses:   filter.Statuses,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// StatusSummary counts the caller's visible tasks by status.
func (s *TaskService) StatusSummary(ctx context.Context, actor *domain.User) (domain.StatusSummary, error) {
	if actor == nil {
		return domain.StatusSummary{}, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsSupervisor() && !actor.IsEmployee() {
		return domain.StatusSummary{}, apperrors.NewForbidden("not authorized")
	}
	return s.tasks.CountByStatus(ctx, policy.ListScope(actor))
}

// UpdateTask routes a PUT: employees may only change the status of their own
// task, supervisors apply a merge patch.
func (s *TaskService) UpdateTask(ctx context.Context, actor *domain.User, taskID string, patch map[string]any) (*TransitionResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.IsEmployee() {
		status, _ := patch["status"].(string)
		return s.updateOwnStatus(ctx, actor, taskID, status)
	}
	return s.ApplyPatch(ctx, actor, taskID, patch)
}

// UpdateOwnStatus is the employee-only status change. Non-employees are
// rejected before the task is looked up.
func (s *TaskService) UpdateOwnStatus(ctx context.Context, actor *domain.User, taskID, status string) (*TransitionResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if err := policy.RequireEmployee(actor); err != nil {
		return nil, err
	}
	return s.updateOwnStatus(ctx, actor, taskID, status)
}

func (s *TaskService) updateOwnStatus(ctx context.Context, actor *domain.User, taskID, rawStatus string) (*TransitionResult, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionStatusUpdate, task); err != nil {
		return nil, err
	}

	status := domain.TaskStatus(strings.TrimSpace(rawStatus))
	switch {
	case status == "":
		return nil, apperrors.NewValidationError("nothing to update", map[string]any{"field": "status"})
	case !status.Valid():
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	case status == domain.TaskStatusOverdue:
		return nil, apperrors.NewValidationError("employees cannot mark tasks overdue", map[string]any{"status": status})
	}

	previous, err := s.tasks.SetStatus(ctx, repository.StatusChange{
		TaskID:     task.ID,
		To:         status,
		AssignedTo: &actor.EmployeeID,
		Exclude:    []domain.TaskStatus{domain.TaskStatusOverdue},
	})
	if err != nil {
		return nil, s.statusChangeError(ctx, actor, task.ID, err, policy.CanUpdateOwnStatus)
	}

	task.Status = status
	task.UpdatedAt = s.now().UTC()
	s.publishStatusChanged(ctx, actor, task.ID, previous, status, TriggerStatusUpdate)

	result := &TransitionResult{Task: task, Notifications: newDispatchReport()}
	if status == domain.TaskStatusInProgress || status == domain.TaskStatusDone {
		supervisors, err := s.supervisors(ctx)
		if err != nil {
			return result, err
		}
		outgoing := BuildNotifications(DispatchInput{
			Trigger:     TriggerStatusUpdate,
			Task:        task,
			Actor:       actor,
			Supervisors: supervisors,
		})
		result.Notifications = s.dispatch(ctx, TriggerStatusUpdate, task.ID, outgoing)
	}
	return result, s.deliveryOutcome(result.Notifications, map[string]any{"task": taskOutcome(result.Task)})
}

// CompleteTask marks the actor's own task Done, notifies every supervisor and
// sends the employee a receipt.
func (s *TaskService) CompleteTask(ctx context.Context, actor *domain.User, taskID string) (*TransitionResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if err := policy.RequireEmployee(actor); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionComplete, task); err != nil {
		return nil, err
	}

	previous, err := s.tasks.SetStatus(ctx, repository.StatusChange{
		TaskID:     task.ID,
		To:         domain.TaskStatusDone,
		AssignedTo: &actor.EmployeeID,
	})
	if err != nil {
		return nil, s.statusChangeError(ctx, actor, task.ID, err, policy.CanComplete)
	}

	task.Status = domain.TaskStatusDone
	task.UpdatedAt = s.now().UTC()
	s.publishStatusChanged(ctx, actor, task.ID, previous, domain.TaskStatusDone, TriggerCompleted)

	result := &TransitionResult{Task: task, Notifications: newDispatchReport()}
	supervisors, err := s.supervisors(ctx)
	if err != nil {
		return result, err
	}
	outgoing := BuildNotifications(DispatchInput{
		Trigger:     TriggerCompleted,
		Task:        task,
		Actor:       actor,
		Supervisors: supervisors,
	})
	result.Notifications = s.dispatch(ctx, TriggerCompleted, task.ID, outgoing)
	return result, s.deliveryOutcome(result.Notifications, map[string]any{"task": taskOutcome(result.Task)})
}

// MarkOverdue applies the external overdue signal. It is idempotent: a task
// that is already Done or Overdue is left alone and nobody is notified.
func (s *TaskService) MarkOverdue(ctx context.Context, actor *domain.User, taskID string) (*OverdueResult, error) {
	if err := policy.Authorize(actor, policy.ActionMarkOverdue, nil); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result := &OverdueResult{Task: task, Notifications: newDispatchReport()}
	if task.Status == domain.TaskStatusDone {
		result.Message = "Task already completed"
		return result, nil
	}

	previous, err := s.tasks.SetStatus(ctx, repository.StatusChange{
		TaskID:  task.ID,
		To:      domain.TaskStatusOverdue,
		Exclude: []domain.TaskStatus{domain.TaskStatusDone, domain.TaskStatusOverdue},
	})
	switch {
	case errors.Is(err, repository.ErrConditionNotMet):
		result.Message = "Overdue processed"
		return result, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("task", map[string]any{"id": taskID})
	case err != nil:
		return nil, err
	}

	task.Status = domain.TaskStatusOverdue
	task.UpdatedAt = s.now().UTC()
	result.Applied = true
	result.Message = "Overdue processed"
	s.publishStatusChanged(ctx, actor, task.ID, previous, domain.TaskStatusOverdue, TriggerOverdue)

	supervisors, err := s.supervisors(ctx)
	if err != nil {
		return result, err
	}
	outgoing := BuildNotifications(DispatchInput{
		Trigger:     TriggerOverdue,
		Task:        task,
		Actor:       actor,
		Supervisors: supervisors,
	})
	result.Notifications = s.dispatch(ctx, TriggerOverdue, task.ID, outgoing)
	return result, s.deliveryOutcome(result.Notifications, map[string]any{"task": taskOutcome(result.Task)})
}

// ApplyPatch applies a supervisor's merge patch. It never notifies.
func (s *TaskService) ApplyPatch(ctx context.Context, actor *domain.User, taskID string, raw map[string]any) (*TransitionResult, error) {
	if err := policy.Authorize(actor, policy.ActionFullUpdate, nil); err != nil {
		return nil, err
	}
	before, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	patch, err := buildTaskPatch(raw, before.Attributes)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Task: before, Notifications: newDispatchReport()}
	if patch.Empty() {
		return result, nil
	}

	updated, err := s.tasks.Patch(ctx, before.ID, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"id": taskID})
		}
		return nil, err
	}
	result.Task = updated

	oldValues, newValues := patchDiff(before, updated, patch)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskUpdated,
		TaskID:  updated.ID,
		ActorID: actor.ID,
		Payload: events.TaskUpdatedPayload{Before: oldValues, After: newValues},
	})
	return result, nil
}

// DeleteTask removes a task permanently. Its history is retained.
func (s *TaskService) DeleteTask(ctx context.Context, actor *domain.User, taskID string) error {
	if err := policy.Authorize(actor, policy.ActionDelete, nil); err != nil {
		return err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task", map[string]any{"id": taskID})
		}
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskDeleted,
		TaskID:  task.ID,
		ActorID: actor.ID,
		Payload: events.TaskDeletedPayload{
			Title:      task.Title,
			AssignedTo: task.AssignedTo,
			Status:     task.Status,
		},
	})
	return nil
}

// ListHistory returns the audit trail of a task, including deleted ones.
func (s *TaskService) ListHistory(ctx context.Context, actor *domain.User, taskID string) ([]domain.TaskHistory, error) {
	if err := policy.Authorize(actor, policy.ActionViewHistory, nil); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, apperrors.NewNotFound("task", map[string]any{"id": taskID})
	}
	if s.history == nil {
		return []domain.TaskHistory{}, nil
	}
	entries, err := s.history.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if _, err := s.loadTask(ctx, taskID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, apperrors.NewNotFound("task", map[string]any{"id": taskID})
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"id": taskID})
		}
		return nil, err
	}
	return task, nil
}

// statusChangeError explains why a guarded status update did not apply. The
// task is re-read so the caller sees the rule that now blocks it.
func (s *TaskService) statusChangeError(ctx context.Context, actor *domain.User, taskID string, err error, rule func(*domain.User, *domain.Task) error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("task", map[string]any{"id": taskID})
	}
	if !errors.Is(err, repository.ErrConditionNotMet) {
		return err
	}
	current, loadErr := s.loadTask(ctx, taskID)
	if loadErr != nil {
		return loadErr
	}
	if ruleErr := rule(actor, current); ruleErr != nil {
		return ruleErr
	}
	return apperrors.NewConflict("task changed concurrently", map[string]any{"id": taskID})
}

func (s *TaskService) supervisors(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx, repository.UserFilter{
		Roles: []domain.Role{domain.RoleAdmin, domain.RoleManager},
	})
}

// dispatch sends outgoing messages one by one. A failed send is recorded and
// the loop moves on. Sends are detached from request cancellation because
// the mutation has already committed.
func (s *TaskService) dispatch(ctx context.Context, trigger Trigger, taskID string, outgoing []Outgoing) DispatchReport {
	report := newDispatchReport()
	if len(outgoing) == 0 || s.notifier == nil {
		return report
	}
	sendCtx := context.WithoutCancel(ctx)

	for _, msg := range outgoing {
		report.Attempted++
		_, err := s.notifier.Send(sendCtx, Message{
			Subject:   msg.Subject,
			Recipient: msg.Recipient,
			Body:      msg.Body,
			Meta:      msg.Meta,
		})
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, DispatchFailure{
				Recipient: msg.Recipient,
				Subject:   msg.Subject,
				Error:     err.Error(),
			})
			s.metrics.RecordNotification(string(trigger), string(domain.DeliveryFailed))
			s.logger.Warn("notification delivery failed",
				zap.String("trigger", string(trigger)),
				zap.String("task_id", taskID),
				zap.String("recipient", msg.Recipient),
				zap.Error(err),
			)
			continue
		}
		report.Delivered++
		s.metrics.RecordNotification(string(trigger), string(domain.DeliverySent))
	}
	report.settle()
	return report
}

// deliveryOutcome fails the call in fail-fast mode once any send failed. The
// mutation has already committed, so committed carries its outcome into the
// error details next to the report.
func (s *TaskService) deliveryOutcome(report DispatchReport, committed map[string]any) error {
	if !s.failFast || report.Failed == 0 {
		return nil
	}
	details := report.Details()
	for k, v := range committed {
		details[k] = v
	}
	first := report.Failures[0]
	return apperrors.NewTransportError(
		fmt.Errorf("%d of %d notifications failed, first to %s: %s", report.Failed, report.Attempted, first.Recipient, first.Error),
		details,
	)
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

// taskOutcome is the committed state reported alongside a delivery failure.
func taskOutcome(task *domain.Task) map[string]any {
	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"assigned_to": task.AssignedTo,
		"status":      string(task.Status),
		"updated_at":  task.UpdatedAt,
	}
}

func (s *TaskService) publishStatusChanged(ctx context.Context, actor *domain.User, taskID string, from, to domain.TaskStatus, trigger Trigger) {
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskStatusChanged,
		TaskID:  taskID,
		ActorID: actorID,
		Payload: events.TaskStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Trigger:   string(trigger),
		},
	})
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("task_id", event.TaskID),
			zap.Error(err),
		)
	}
}
