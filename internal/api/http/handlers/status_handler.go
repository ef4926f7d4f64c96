package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/service"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// StatusHandler serves the dashboard summary and the employee status update.
type StatusHandler struct {
	service *service.TaskService
}

// NewStatusHandler constructs handler.
func NewStatusHandler(taskService *service.TaskService) *StatusHandler {
	return &StatusHandler{service: taskService}
}

// Summary GET /status/summary.
func (h *StatusHandler) Summary(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.service.StatusSummary(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusSummaryResponse(summary)})
}

// Update POST /status/update.
func (h *StatusHandler) Update(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	result, err := h.service.UpdateOwnStatus(c.UserContext(), actor, req.TaskID, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(result)})
}
