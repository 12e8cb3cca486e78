package devices

import (
	"time"

	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/angelmondragon/ims-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeviceDTO is the read view of a device, including its open assignment.
type DeviceDTO struct {
	ID                uuid.UUID             `json:"id"`
	DeviceCode        string                `json:"device_code"`
	Name              string                `json:"name"`
	DeviceType        enums.DeviceType      `json:"device_type"`
	Brand             string                `json:"brand"`
	Model             string                `json:"model"`
	SerialNumber      *string               `json:"serial_number"`
	Status            enums.DeviceStatus    `json:"status"`
	Condition         enums.DeviceCondition `json:"condition"`
	Specifications    map[string]any        `json:"specifications"`
	PurchaseDate      *types.Date           `json:"purchase_date"`
	PurchasePrice     *decimal.Decimal      `json:"purchase_price"`
	WarrantyExpiry    *types.Date           `json:"warranty_expiry"`
	Location          string                `json:"location"`
	Notes             string                `json:"notes"`
	ImageURL          *string               `json:"image_url"`
	CreatedByID       *uuid.UUID            `json:"created_by_id"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	CurrentAssignment *CurrentAssignmentDTO `json:"current_assignment"`
}

// CurrentAssignmentDTO summarizes the non-terminal assignment holding a device.
type CurrentAssignmentDTO struct {
	ID                 uuid.UUID              `json:"id"`
	Status             enums.AssignmentStatus `json:"status"`
	EmployeeID         uuid.UUID              `json:"employee_id"`
	EmployeeName       string                 `json:"employee_name"`
	EmployeeCode       string                 `json:"employee_code"`
	AssignedDate       time.Time              `json:"assigned_date"`
	ExpectedReturnDate *types.Date            `json:"expected_return_date"`
}

// FromModel maps a device row; current may be nil.
func FromModel(d *models.Device, current *models.Assignment) *DeviceDTO {
	if d == nil {
		return nil
	}
	specs := map[string]any(d.Specifications)
	if specs == nil {
		specs = map[string]any{}
	}
	dto := &DeviceDTO{
		ID:             d.ID,
		DeviceCode:     d.DeviceCode,
		Name:           d.Name,
		DeviceType:     d.DeviceType,
		Brand:          d.Brand,
		Model:          d.Model,
		SerialNumber:   d.SerialNumber,
		Status:         d.Status,
		Condition:      d.Condition,
		Specifications: specs,
		PurchaseDate:   types.DatePtr(d.PurchaseDate),
		WarrantyExpiry: types.DatePtr(d.WarrantyExpiry),
		Location:       d.Location,
		Notes:          d.Notes,
		ImageURL:       d.ImageURL,
		CreatedByID:    d.CreatedByID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.PurchasePrice.Valid {
		price := d.PurchasePrice.Decimal
		dto.PurchasePrice = &price
	}
	if current != nil {
		summary := &CurrentAssignmentDTO{
			ID:                 current.ID,
			Status:             current.Status,
			EmployeeID:         current.EmployeeID,
			AssignedDate:       current.AssignedDate,
			ExpectedReturnDate: types.DatePtr(current.ExpectedReturnDate),
		}
		if current.Employee != nil {
			summary.EmployeeName = current.Employee.FullName()
			summary.EmployeeCode = current.Employee.EmployeeCode
		}
		dto.CurrentAssignment = summary
	}
	return dto
}

// CreateInput is the admin payload for a new catalog entry. Status is not accepted.
type CreateInput struct {
	DeviceCode     string           `json:"device_code" validate:"required,max=50"`
	Name           string           `json:"name" validate:"required,max=200"`
	DeviceType     string           `json:"device_type" validate:"required"`
	Brand          string           `json:"brand" validate:"required,max=100"`
	Model          string           `json:"model" validate:"required,max=100"`
	SerialNumber   *string          `json:"serial_number" validate:"omitempty,max=100"`
	Condition      *string          `json:"condition"`
	Specifications map[string]any   `json:"specifications"`
	PurchaseDate   *types.Date      `json:"purchase_date"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price"`
	WarrantyExpiry *types.Date      `json:"warranty_expiry"`
	Location       string           `json:"location" validate:"max=200"`
	Notes          string           `json:"notes"`
	ImageURL       *string          `json:"image_url" validate:"omitempty,url"`
}

// UpdateInput is a partial update; nil fields are left untouched. An empty
// serial number clears it.
type UpdateInput struct {
	DeviceCode     *string          `json:"device_code" validate:"omitempty,min=1,max=50"`
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	DeviceType     *string          `json:"device_type"`
	Brand          *string          `json:"brand" validate:"omitempty,max=100"`
	Model          *string          `json:"model" validate:"omitempty,max=100"`
	SerialNumber   *string          `json:"serial_number" validate:"omitempty,max=100"`
	Condition      *string          `json:"condition"`
	Specifications *map[string]any  `json:"specifications"`
	PurchaseDate   *types.Date      `json:"purchase_date"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price"`
	WarrantyExpiry *types.Date      `json:"warranty_expiry"`
	Location       *string          `json:"location" validate:"omitempty,max=200"`
	Notes          *string          `json:"notes"`
	ImageURL       *string          `json:"image_url"`
}

// ListParams holds filters for the device catalog listing.
type ListParams struct {
	pagination.Params
	Status     *enums.DeviceStatus
	DeviceType *enums.DeviceType
	Condition  *enums.DeviceCondition
	Search     string
}

type listQuery struct {
	Status     *enums.DeviceStatus
	DeviceType *enums.DeviceType
	Condition  *enums.DeviceCondition
	Search     string
	Cursor     *pagination.Cursor
	Limit      int
}
