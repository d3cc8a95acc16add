package domain

import "time"

// Role enumerates account privilege levels.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	// RoleEmployee marks helpers who assist admins inside their department.
	RoleEmployee Role = "employee"
)

// User is the account model for submitters, admins and helpers.
type User struct {
	ID              int64      `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"password_hash"`
	Role            Role       `json:"role"`
	Department      *string    `json:"department,omitempty"`
	Plant           *string    `json:"plant,omitempty"`
	ManagerID       *int64     `json:"manager_id,omitempty"`
	InitialPassword string     `json:"initial_password,omitempty"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeactivatedAt   *time.Time `json:"deactivated_at,omitempty"`
}
