package auth

import (
	"context"
	"time"

	"github.com/angelmondragon/ims-backend/internal/repo"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResetTokenRepository persists password reset tokens.
type ResetTokenRepository interface {
	WithTx(tx *gorm.DB) ResetTokenRepository
	LockEmployee(ctx context.Context, employeeID uuid.UUID) error
	InvalidateUnused(ctx context.Context, employeeID uuid.UUID) error
	Create(ctx context.Context, token *models.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	FindByTokenForUpdate(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type resetTokenRepository struct {
	repo.Base
}

func NewResetTokenRepository(db *gorm.DB) ResetTokenRepository {
	return &resetTokenRepository{Base: repo.NewBase(db)}
}

func (r *resetTokenRepository) WithTx(tx *gorm.DB) ResetTokenRepository {
	if tx == nil {
		return r
	}
	return &resetTokenRepository{Base: repo.NewBase(tx)}
}

// LockEmployee holds the employee row so reset requests for the same
// account run one at a time.
func (r *resetTokenRepository) LockEmployee(ctx context.Context, employeeID uuid.UUID) error {
	return r.Locked(ctx).Select("id").Where("id = ?", employeeID).First(&models.Employee{}).Error
}

// InvalidateUnused marks every outstanding token for the employee as used.
func (r *resetTokenRepository) InvalidateUnused(ctx context.Context, employeeID uuid.UUID) error {
	return r.DB(ctx).Model(&models.PasswordResetToken{}).
		Where("employee_id = ? AND is_used = ?", employeeID, false).
		Update("is_used", true).Error
}

func (r *resetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return r.DB(ctx).Create(token).Error
}

func (r *resetTokenRepository) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var row models.PasswordResetToken
	if err := r.DB(ctx).Preload("Employee").Where("token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByTokenForUpdate locks the token row for the rest of the transaction.
func (r *resetTokenRepository) FindByTokenForUpdate(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var row models.PasswordResetToken
	if err := r.Locked(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *resetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Model(&models.PasswordResetToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExpiredBefore purges tokens whose expiry is older than cutoff, used or not.
func (r *resetTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Where("expires_at < ?", cutoff).Delete(&models.PasswordResetToken{})
	return res.RowsAffected, res.Error
}

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl).UTC()
}
