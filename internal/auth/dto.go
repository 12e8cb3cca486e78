package auth

import (
	"github.com/angelmondragon/ims-backend/internal/employees"
)

// LoginRequest captures the employee credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the public signup payload. Role is always employee.
type RegisterRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"password_confirm" validate:"required"`
	FirstName       string  `json:"first_name" validate:"required,max=150"`
	LastName        string  `json:"last_name" validate:"required,max=150"`
	Department      *string `json:"department"`
	PhoneNumber     *string `json:"phone_number" validate:"omitempty,max=20"`
}

// TokenResponse contains the tokens and profile produced by login, register and refresh.
type TokenResponse struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	Employee     *employees.EmployeeDTO `json:"employee"`
}

// RefreshRequest carries the refresh token paired with the (possibly expired) bearer token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetConfirmRequest struct {
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

// ResetVerification is returned for a token that can still be consumed.
type ResetVerification struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

// MessageResponse is the body for endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}
