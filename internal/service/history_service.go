package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository"
)

// HistoryService turns task events into audit trail entries.
type HistoryService struct {
	dispatcher events.Dispatcher
	history    repository.TaskHistoryRepository
	logger     *zap.Logger
}

// NewHistoryService creates the service.
func NewHistoryService(dispatcher events.Dispatcher, history repository.TaskHistoryRepository, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		dispatcher: dispatcher,
		history:    history,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (h *HistoryService) RegisterHandlers() {
	if h.dispatcher == nil || h.history == nil {
		return
	}
	h.dispatcher.Subscribe(events.EventTaskCreated, h.handleTaskCreated)
	h.dispatcher.Subscribe(events.EventTaskStatusChanged, h.handleTaskStatusChanged)
	h.dispatcher.Subscribe(events.EventTaskUpdated, h.handleTaskUpdated)
	h.dispatcher.Subscribe(events.EventTaskDeleted, h.handleTaskDeleted)
}

func (h *HistoryService) handleTaskCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return h.record(ctx, event, domain.ChangeTypeCreated, nil, map[string]any{
		"title":       payload.Title,
		"assigned_to": payload.AssignedTo,
		"priority":    string(payload.Priority),
		"status":      string(payload.Status),
	})
}

func (h *HistoryService) handleTaskStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return h.record(ctx, event, domain.ChangeTypeStatus,
		map[string]any{"status": string(payload.OldStatus)},
		map[string]any{"status": string(payload.NewStatus), "trigger": payload.Trigger},
	)
}

func (h *HistoryService) handleTaskUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskUpdatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return h.record(ctx, event, domain.ChangeTypeFields, payload.Before, payload.After)
}

func (h *HistoryService) handleTaskDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskDeletedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return h.record(ctx, event, domain.ChangeTypeDeleted, map[string]any{
		"title":       payload.Title,
		"assigned_to": payload.AssignedTo,
		"status":      string(payload.Status),
	}, nil)
}

func (h *HistoryService) record(ctx context.Context, event events.Event, change domain.TaskChangeType, oldValue, newValue map[string]any) error {
	entry := &domain.TaskHistory{
		TaskID:      event.TaskID,
		ChangedByID: event.ActorID,
		ChangeType:  change,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := h.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("record %s for task %s: %w", change, event.TaskID, err)
	}
	h.logger.Debug("task history recorded",
		zap.String("task_id", event.TaskID),
		zap.String("change_type", string(change)),
	)
	return nil
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("event %s: unexpected payload %T", event.Type, event.Payload)
}
