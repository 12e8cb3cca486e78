package tickets

import (
	"time"

	"github.com/angelmondragon/ims-backend/internal/employees"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/google/uuid"
)

type DeviceRef struct {
	ID         uuid.UUID `json:"id"`
	DeviceCode string    `json:"device_code"`
	Name       string    `json:"name"`
}

type TicketDTO struct {
	ID              uuid.UUID             `json:"id"`
	TicketNumber    string                `json:"ticket_number"`
	TicketType      enums.TicketType      `json:"ticket_type"`
	Priority        enums.TicketPriority  `json:"priority"`
	Status          enums.TicketStatus    `json:"status"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	RequestedByID   uuid.UUID             `json:"requested_by_id"`
	RequestedBy     *employees.SummaryDTO `json:"requested_by,omitempty"`
	AssignedToID    *uuid.UUID            `json:"assigned_to_id"`
	AssignedTo      *employees.SummaryDTO `json:"assigned_to,omitempty"`
	DeviceID        *uuid.UUID            `json:"device_id"`
	Device          *DeviceRef            `json:"device,omitempty"`
	ResolutionNotes *string               `json:"resolution_notes"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	AttachmentURL   *string               `json:"attachment_url"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func FromModel(t *models.TicketRequest) *TicketDTO {
	if t == nil {
		return nil
	}
	dto := &TicketDTO{
		ID:              t.ID,
		TicketNumber:    t.TicketNumber,
		TicketType:      t.TicketType,
		Priority:        t.Priority,
		Status:          t.Status,
		Subject:         t.Subject,
		Description:     t.Description,
		RequestedByID:   t.RequestedByID,
		RequestedBy:     employees.SummaryFromModel(t.RequestedBy),
		AssignedToID:    t.AssignedToID,
		AssignedTo:      employees.SummaryFromModel(t.AssignedTo),
		DeviceID:        t.DeviceID,
		ResolutionNotes: t.ResolutionNotes,
		ResolvedAt:      t.ResolvedAt,
		AttachmentURL:   t.AttachmentURL,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.Device != nil {
		dto.Device = &DeviceRef{ID: t.Device.ID, DeviceCode: t.Device.DeviceCode, Name: t.Device.Name}
	}
	return dto
}

// CreateInput opens a ticket. Priority defaults to medium.
type CreateInput struct {
	TicketType    string     `json:"ticket_type" validate:"required"`
	Priority      string     `json:"priority"`
	Subject       string     `json:"subject" validate:"required,max=200"`
	Description   string     `json:"description" validate:"required"`
	DeviceID      *uuid.UUID `json:"device_id"`
	AttachmentURL *string    `json:"attachment_url" validate:"omitempty,url"`
}

// UpdateInput edits an open ticket.
type UpdateInput struct {
	Subject       *string    `json:"subject" validate:"omitempty,max=200"`
	Description   *string    `json:"description"`
	Priority      *string    `json:"priority"`
	DeviceID      *uuid.UUID `json:"device_id"`
	AttachmentURL *string    `json:"attachment_url"`
}

type AssignInput struct {
	AssignedTo *uuid.UUID `json:"assigned_to"`
}

type ResolveInput struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// CloseInput moves a ticket to rejected or closed.
type CloseInput struct {
	Status          string  `json:"status" validate:"required,oneof=rejected closed"`
	ResolutionNotes *string `json:"resolution_notes"`
}

type ListParams struct {
	pagination.Params
	Status     *enums.TicketStatus
	TicketType *enums.TicketType
	Priority   *enums.TicketPriority
	Search     string
}

type listQuery struct {
	Status      *enums.TicketStatus
	TicketType  *enums.TicketType
	Priority    *enums.TicketPriority
	Search      string
	RequestedBy *uuid.UUID
	VisibleTo   *uuid.UUID
	Cursor      *pagination.Cursor
	Limit       int
}
