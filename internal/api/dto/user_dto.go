package dto

import "time"

// UserResponse is the wire shape for an account, without credentials.
type UserResponse struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Department *string    `json:"department,omitempty"`
	Plant      *string    `json:"plant,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ManagerID  *int64     `json:"manager_id,omitempty"`
	Deactivate *time.Time `json:"deactivated_at,omitempty"`
}

// AdminResponse extends UserResponse with the starter password so a super
// admin can hand out credentials.
type AdminResponse struct {
	UserResponse
	Password string `json:"password,omitempty"`
}

// AdminCreateRequest payload for onboarding an admin.
type AdminCreateRequest struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Department *string `json:"department,omitempty"`
	Plant      *string `json:"plant,omitempty"`
}

// EmployeeCreateRequest payload for onboarding an employee.
type EmployeeCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdateRequest payload for account edits.
type UserUpdateRequest struct {
	Email      *string `json:"email,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	Plant      *string `json:"plant,omitempty"`
	ManagerID  *int64  `json:"manager_id,omitempty"`
}
