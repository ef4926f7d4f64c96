package domain

import "time"

// Role is fixed at registration and never changed by task operations.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

// User is an authenticated member of the organization.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	// EmployeeID is set for employees; tasks reference it in AssignedTo.
	EmployeeID string
	IsVerified bool
	CreatedAt  time.Time
}

// IsSupervisor reports whether the user is an Admin or Manager.
func (u *User) IsSupervisor() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleManager)
}

// IsEmployee reports whether the user has the Employee role.
func (u *User) IsEmployee() bool {
	return u != nil && u.Role == RoleEmployee
}
