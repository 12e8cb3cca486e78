package models

import (
	"time"

	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment links one device to one employee. Evidence columns are written
// only by the two approval transitions.
type Assignment struct {
	ID                      uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	DeviceID                uuid.UUID              `gorm:"column:device_id;type:uuid;not null;index"`
	EmployeeID              uuid.UUID              `gorm:"column:employee_id;type:uuid;not null;index"`
	AssignedByID            *uuid.UUID             `gorm:"column:assigned_by_id;type:uuid"`
	Status                  enums.AssignmentStatus `gorm:"column:status;not null;index"`
	AssignedDate            time.Time              `gorm:"column:assigned_date;not null;<-:create"`
	ExpectedReturnDate      *time.Time             `gorm:"column:expected_return_date;type:date"`
	ReturnDate              *time.Time             `gorm:"column:return_date"`
	AssignmentImage         *string                `gorm:"column:assignment_image"`
	AssignmentUndertaking   bool                   `gorm:"column:assignment_undertaking;not null"`
	AssignmentApprovedByID  *uuid.UUID             `gorm:"column:assignment_approved_by_id;type:uuid"`
	AssignmentApprovedDate  *time.Time             `gorm:"column:assignment_approved_date"`
	ReturnImage             *string                `gorm:"column:return_image"`
	ReturnApprovedByID      *uuid.UUID             `gorm:"column:return_approved_by_id;type:uuid"`
	ReturnApprovedDate      *time.Time             `gorm:"column:return_approved_date"`
	DeviceConditionOnReturn *enums.DeviceCondition `gorm:"column:device_condition_on_return"`
	DeviceBroken            bool                   `gorm:"column:device_broken;not null"`
	AssignmentNotes         string                 `gorm:"column:assignment_notes;not null"`
	ReturnNotes             string                 `gorm:"column:return_notes;not null"`
	CreatedAt               time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time              `gorm:"column:updated_at;autoUpdateTime"`
	Device                  *Device                `gorm:"foreignKey:DeviceID"`
	Employee                *Employee              `gorm:"foreignKey:EmployeeID"`
	AssignedBy              *Employee              `gorm:"foreignKey:AssignedByID"`
	AssignmentApprovedBy    *Employee              `gorm:"foreignKey:AssignmentApprovedByID"`
	ReturnApprovedBy        *Employee              `gorm:"foreignKey:ReturnApprovedByID"`
}

func (Assignment) TableName() string { return "assignments" }

func (a *Assignment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssignedDate.IsZero() {
		a.AssignedDate = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = enums.AssignmentStatusPendingApproval
	}
	return nil
}
