package models

import (
	"time"

	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketRequest is a support request raised by an employee.
type TicketRequest struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TicketNumber    string               `gorm:"column:ticket_number;not null;uniqueIndex"`
	RequestedByID   uuid.UUID            `gorm:"column:requested_by_id;type:uuid;not null;index"`
	TicketType      enums.TicketType     `gorm:"column:ticket_type;not null"`
	Priority        enums.TicketPriority `gorm:"column:priority;not null"`
	Status          enums.TicketStatus   `gorm:"column:status;not null;index"`
	DeviceID        *uuid.UUID           `gorm:"column:device_id;type:uuid"`
	Subject         string               `gorm:"column:subject;not null"`
	Description     string               `gorm:"column:description;not null"`
	AssignedToID    *uuid.UUID           `gorm:"column:assigned_to_id;type:uuid;index"`
	ResolutionNotes *string              `gorm:"column:resolution_notes"`
	ResolvedAt      *time.Time           `gorm:"column:resolved_at"`
	AttachmentURL   *string              `gorm:"column:attachment_url"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	RequestedBy     *Employee            `gorm:"foreignKey:RequestedByID"`
	AssignedTo      *Employee            `gorm:"foreignKey:AssignedToID"`
	Device          *Device              `gorm:"foreignKey:DeviceID"`
}

func (TicketRequest) TableName() string { return "ticket_requests" }

func (t *TicketRequest) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Priority == "" {
		t.Priority = enums.TicketPriorityMedium
	}
	return nil
}
