package employees

import (
	"time"

	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/google/uuid"
)

// EmployeeDTO is the API representation of an employee. The password hash never leaves the service.
type EmployeeDTO struct {
	ID           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	EmployeeCode string             `json:"employee_code"`
	FirstName    string             `json:"first_name"`
	LastName     string             `json:"last_name"`
	FullName     string             `json:"full_name"`
	Role         enums.EmployeeRole `json:"role"`
	Department   *enums.Department  `json:"department"`
	PhoneNumber  *string            `json:"phone_number"`
	IsActive     bool               `json:"is_active"`
	IsStaff      bool               `json:"is_staff"`
	DateJoined   time.Time          `json:"date_joined"`
	LastLoginAt  *time.Time         `json:"last_login_at"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SummaryDTO is the compact form embedded in assignments and tickets.
type SummaryDTO struct {
	ID           uuid.UUID          `json:"id"`
	EmployeeCode string             `json:"employee_code"`
	FullName     string             `json:"full_name"`
	Email        string             `json:"email"`
	Role         enums.EmployeeRole `json:"role"`
}

func FromModel(e *models.Employee) *EmployeeDTO {
	if e == nil {
		return nil
	}
	return &EmployeeDTO{
		ID:           e.ID,
		Email:        e.Email,
		EmployeeCode: e.EmployeeCode,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		FullName:     e.FullName(),
		Role:         e.Role,
		Department:   e.Department,
		PhoneNumber:  e.PhoneNumber,
		IsActive:     e.IsActive,
		IsStaff:      e.IsStaff,
		DateJoined:   e.DateJoined,
		LastLoginAt:  e.LastLoginAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func SummaryFromModel(e *models.Employee) *SummaryDTO {
	if e == nil {
		return nil
	}
	return &SummaryDTO{
		ID:           e.ID,
		EmployeeCode: e.EmployeeCode,
		FullName:     e.FullName(),
		Email:        e.Email,
		Role:         e.Role,
	}
}

// CreateInput is the admin create payload. Without a password the account
// gets an unusable one and the employee activates it through password reset.
type CreateInput struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	Password    *string `json:"password,omitempty"`
	FirstName   string  `json:"first_name" validate:"required,max=150"`
	LastName    string  `json:"last_name" validate:"required,max=150"`
	Role        string  `json:"role,omitempty"`
	Department  *string `json:"department,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=20"`
	IsStaff     bool    `json:"is_staff"`
}

// UpdateInput is a partial admin update; nil fields are left untouched.
type UpdateInput struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password    *string `json:"password,omitempty"`
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
	Role        *string `json:"role,omitempty"`
	Department  *string `json:"department,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=20"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsStaff     *bool   `json:"is_staff,omitempty"`
}

// ProfileUpdate lists the only fields an employee may change about themselves.
type ProfileUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Department  *string `json:"department,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// ProtectedProfileFields cannot be changed through the self-service profile endpoint.
var ProtectedProfileFields = []string{"email", "employee_code", "role", "is_active", "is_staff", "date_joined"}

// ProvisionInput creates an employee without any authorization check; callers
// (signup, admin create) decide who may do that.
type ProvisionInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        enums.EmployeeRole
	Department  *enums.Department
	PhoneNumber *string
	IsStaff     bool
}

// ListParams filters the admin directory.
type ListParams struct {
	pagination.Params
	Role            *enums.EmployeeRole
	Department      *enums.Department
	Search          string
	IncludeInactive bool
}

type listQuery struct {
	Role            *enums.EmployeeRole
	Department      *enums.Department
	Search          string
	IncludeInactive bool
	Cursor          *pagination.Cursor
	Limit           int
}
