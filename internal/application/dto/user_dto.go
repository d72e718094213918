package dto

import "time"

// CreateUserRequest entrada para crear un usuario (el PIN llega en claro y se hashea en el use case).
type CreateUserRequest struct {
	DisplayName    string `json:"display_name" validate:"required,min=1,max=200"`
	Username       string `json:"username"`
	EmployeeNumber string `json:"employee_number"`
	ExternalUID    string `json:"external_uid"`
	PhoneNumber    string `json:"phone_number"`
	Role           string `json:"role" validate:"required,oneof=manager detailer salesperson"`
	Pin            string `json:"pin" validate:"required,numeric,min=4,max=8"`
}

// SetPinRequest cambio de PIN.
type SetPinRequest struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=8"`
}

// ChangeRoleRequest cambio de rol (solo manager).
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=manager detailer salesperson"`
}

// UserResponse salida de un usuario (sin hash de PIN).
type UserResponse struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	Username       string     `json:"username,omitempty"`
	EmployeeNumber string     `json:"employee_number,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	Role           string     `json:"role"`
	IsActive       bool       `json:"is_active"`
	HasPin         bool       `json:"has_pin"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
