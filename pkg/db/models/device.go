package models

import (
	"time"

	dbtypes "github.com/angelmondragon/ims-backend/pkg/db/types"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Device is a catalog entry for a physical asset. Status is maintained by the
// assignment engine and the explicit maintenance/available/retired operations.
type Device struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	DeviceCode     string                `gorm:"column:device_code;not null;uniqueIndex"`
	Name           string                `gorm:"column:name;not null"`
	DeviceType     enums.DeviceType      `gorm:"column:device_type;not null"`
	Brand          string                `gorm:"column:brand;not null"`
	Model          string                `gorm:"column:model;not null"`
	SerialNumber   *string               `gorm:"column:serial_number;uniqueIndex"`
	Status         enums.DeviceStatus    `gorm:"column:status;not null"`
	Condition      enums.DeviceCondition `gorm:"column:condition;not null"`
	Specifications dbtypes.JSONMap       `gorm:"column:specifications;type:jsonb"`
	PurchaseDate   *time.Time            `gorm:"column:purchase_date;type:date"`
	PurchasePrice  decimal.NullDecimal   `gorm:"column:purchase_price;type:numeric(10,2)"`
	WarrantyExpiry *time.Time            `gorm:"column:warranty_expiry;type:date"`
	Location       string                `gorm:"column:location;not null"`
	Notes          string                `gorm:"column:notes;not null"`
	ImageURL       *string               `gorm:"column:image_url"`
	CreatedByID    *uuid.UUID            `gorm:"column:created_by_id;type:uuid"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Device) TableName() string { return "devices" }

func (d *Device) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = enums.DeviceStatusAvailable
	}
	if d.Condition == "" {
		d.Condition = enums.DeviceConditionGood
	}
	return nil
}
