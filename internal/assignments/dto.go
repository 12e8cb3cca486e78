package assignments

import (
	"time"

	"github.com/angelmondragon/ims-backend/internal/employees"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/angelmondragon/ims-backend/pkg/types"
	"github.com/google/uuid"
)

// DeviceSummary is the compact device view embedded in assignments.
type DeviceSummary struct {
	ID         uuid.UUID          `json:"id"`
	DeviceCode string             `json:"device_code"`
	Name       string             `json:"name"`
	DeviceType enums.DeviceType   `json:"device_type"`
	Status     enums.DeviceStatus `json:"status"`
}

type AssignmentDTO struct {
	ID                      uuid.UUID              `json:"id"`
	Status                  enums.AssignmentStatus `json:"status"`
	DeviceID                uuid.UUID              `json:"device_id"`
	Device                  *DeviceSummary         `json:"device,omitempty"`
	EmployeeID              uuid.UUID              `json:"employee_id"`
	Employee                *employees.SummaryDTO  `json:"employee,omitempty"`
	AssignedBy              *employees.SummaryDTO  `json:"assigned_by"`
	AssignedDate            time.Time              `json:"assigned_date"`
	ExpectedReturnDate      *types.Date            `json:"expected_return_date"`
	ReturnDate              *time.Time             `json:"return_date"`
	AssignmentImage         *string                `json:"assignment_image"`
	AssignmentUndertaking   bool                   `json:"assignment_undertaking"`
	AssignmentApprovedBy    *employees.SummaryDTO  `json:"assignment_approved_by"`
	AssignmentApprovedDate  *time.Time             `json:"assignment_approved_date"`
	ReturnImage             *string                `json:"return_image"`
	ReturnApprovedBy        *employees.SummaryDTO  `json:"return_approved_by"`
	ReturnApprovedDate      *time.Time             `json:"return_approved_date"`
	DeviceConditionOnReturn *enums.DeviceCondition `json:"device_condition_on_return"`
	DeviceBroken            bool                   `json:"device_broken"`
	AssignmentNotes         string                 `json:"assignment_notes"`
	ReturnNotes             string                 `json:"return_notes"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// FromModel maps an assignment with whatever relations were preloaded.
func FromModel(a *models.Assignment) *AssignmentDTO {
	if a == nil {
		return nil
	}
	dto := &AssignmentDTO{
		ID:                      a.ID,
		Status:                  a.Status,
		DeviceID:                a.DeviceID,
		EmployeeID:              a.EmployeeID,
		Employee:                employees.SummaryFromModel(a.Employee),
		AssignedBy:              employees.SummaryFromModel(a.AssignedBy),
		AssignedDate:            a.AssignedDate,
		ExpectedReturnDate:      types.DatePtr(a.ExpectedReturnDate),
		ReturnDate:              a.ReturnDate,
		AssignmentImage:         a.AssignmentImage,
		AssignmentUndertaking:   a.AssignmentUndertaking,
		AssignmentApprovedBy:    employees.SummaryFromModel(a.AssignmentApprovedBy),
		AssignmentApprovedDate:  a.AssignmentApprovedDate,
		ReturnImage:             a.ReturnImage,
		ReturnApprovedBy:        employees.SummaryFromModel(a.ReturnApprovedBy),
		ReturnApprovedDate:      a.ReturnApprovedDate,
		DeviceConditionOnReturn: a.DeviceConditionOnReturn,
		DeviceBroken:            a.DeviceBroken,
		AssignmentNotes:         a.AssignmentNotes,
		ReturnNotes:             a.ReturnNotes,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
	}
	if a.Device != nil {
		dto.Device = &DeviceSummary{
			ID:         a.Device.ID,
			DeviceCode: a.Device.DeviceCode,
			Name:       a.Device.Name,
			DeviceType: a.Device.DeviceType,
			Status:     a.Device.Status,
		}
	}
	return dto
}

// CreateInput creates an assignment. EmployeeID defaults to the caller and
// Status to pending_approval.
type CreateInput struct {
	DeviceID           uuid.UUID   `json:"device_id" validate:"required"`
	EmployeeID         *uuid.UUID  `json:"employee_id"`
	Status             string      `json:"status" validate:"omitempty,oneof=pending_approval active"`
	ExpectedReturnDate *types.Date `json:"expected_return_date"`
	AssignmentNotes    string      `json:"assignment_notes"`
}

// UpdateInput edits the free-form fields of an assignment.
type UpdateInput struct {
	AssignmentNotes    *string     `json:"assignment_notes"`
	ExpectedReturnDate *types.Date `json:"expected_return_date"`
}

// ApproveAssignmentInput carries the multipart evidence for approval.
type ApproveAssignmentInput struct {
	Image       []byte
	Undertaking bool
}

// ApproveReturnInput carries the multipart evidence for a return. Condition
// defaults to good.
type ApproveReturnInput struct {
	Image        []byte
	Condition    string
	DeviceBroken bool
}

type ReturnRequestInput struct {
	ReturnNotes string `json:"return_notes"`
}

type IncidentInput struct {
	Outcome string `json:"outcome" validate:"required,oneof=lost damaged"`
	Notes   string `json:"notes"`
}

// ListParams filters the assignment listing.
type ListParams struct {
	pagination.Params
	Status     *enums.AssignmentStatus
	EmployeeID *uuid.UUID
	DeviceID   *uuid.UUID
	Search     string
}

type listQuery struct {
	Status     *enums.AssignmentStatus
	EmployeeID *uuid.UUID
	DeviceID   *uuid.UUID
	Search     string
	Cursor     *pagination.Cursor
	Limit      int
}
