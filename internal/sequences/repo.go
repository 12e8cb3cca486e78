// Package sequences hands out human readable codes (EMP001, TKT001) from a
// counter row that is incremented atomically inside the caller's transaction.
package sequences

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ims-backend/internal/repo"
	"gorm.io/gorm"
)

const (
	EmployeeCode = "employee_code"
	TicketNumber = "ticket_number"
)

var prefixes = map[string]string{
	EmployeeCode: "EMP",
	TicketNumber: "TKT",
}

// Repository allocates sequence values.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Next(ctx context.Context, name string) (int64, error)
	NextCode(ctx context.Context, name string) (string, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Next increments and returns the named counter. The upsert holds the row
// lock until the surrounding transaction ends, so concurrent callers serialize.
func (r *repository) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.DB(ctx).Raw(
		`INSERT INTO code_sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = code_sequences.value + 1
		 RETURNING value`, name,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("sequence %q returned no value", name)
	}
	return value, nil
}

func (r *repository) NextCode(ctx context.Context, name string) (string, error) {
	prefix, ok := prefixes[name]
	if !ok {
		return "", fmt.Errorf("unknown sequence %q", name)
	}
	n, err := r.Next(ctx, name)
	if err != nil {
		return "", err
	}
	return Format(prefix, n), nil
}

// Format renders a code with at least three digits: EMP007, EMP1234.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}
