package models

import (
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is the identity record used for login and as assignee/requester
// on assignments and tickets. Deactivation flips IsActive; rows are never removed.
type Employee struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Email        string             `gorm:"column:email;not null;uniqueIndex"`
	EmployeeCode string             `gorm:"column:employee_code;not null;uniqueIndex"`
	PasswordHash string             `gorm:"column:password_hash;not null"`
	FirstName    string             `gorm:"column:first_name;not null"`
	LastName     string             `gorm:"column:last_name;not null"`
	Role         enums.EmployeeRole `gorm:"column:role;not null"`
	Department   *enums.Department  `gorm:"column:department"`
	PhoneNumber  *string            `gorm:"column:phone_number"`
	IsActive     bool               `gorm:"column:is_active;not null"`
	IsStaff      bool               `gorm:"column:is_staff;not null"`
	DateJoined   time.Time          `gorm:"column:date_joined;not null"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Employee) TableName() string { return "employees" }

func (e *Employee) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.DateJoined.IsZero() {
		e.DateJoined = time.Now().UTC()
	}
	return nil
}

// FullName joins first and last name, falling back to the email.
func (e Employee) FullName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if name == "" {
		return e.Email
	}
	return name
}

// PasswordResetToken is a single-use credential for the reset flow.
type PasswordResetToken struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"column:employee_id;type:uuid;not null;index"`
	Token      string    `gorm:"column:token;not null;uniqueIndex"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`
	IsUsed     bool      `gorm:"column:is_used;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	Employee   *Employee `gorm:"foreignKey:EmployeeID"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

func (t *PasswordResetToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsValid reports whether the token can still be consumed at now.
func (t PasswordResetToken) IsValid(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}
