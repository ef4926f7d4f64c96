package dto

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token      string      `json:"token"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Role       domain.Role `json:"role"`
	Username   string      `json:"username"`
	EmployeeID string      `json:"employee_id,omitempty"`
}
