package devices

import (
	"context"
	"time"

	"github.com/angelmondragon/ims-backend/internal/repo"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var openStatuses = []enums.AssignmentStatus{
	enums.AssignmentStatusPendingApproval,
	enums.AssignmentStatusActive,
	enums.AssignmentStatusPendingReturn,
}

// Repository persists devices and answers the assignment questions device
// operations depend on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, device *models.Device) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Device, error)
	CodeExists(ctx context.Context, code string, exclude uuid.UUID) (bool, error)
	SerialExists(ctx context.Context, serial string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q listQuery) ([]models.Device, error)
	CountAssignments(ctx context.Context, deviceID uuid.UUID, statuses ...enums.AssignmentStatus) (int64, error)
	CurrentAssignments(ctx context.Context, deviceIDs []uuid.UUID) (map[uuid.UUID]*models.Assignment, error)
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

func (r *repository) Create(ctx context.Context, device *models.Device) error {
	return r.DB(ctx).Create(device).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	var device models.Device
	if err := r.DB(ctx).Where("id = ?", id).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	var device models.Device
	if err := r.Locked(ctx).Where("id = ?", id).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *repository) CodeExists(ctx context.Context, code string, exclude uuid.UUID) (bool, error) {
	return r.exists(ctx, "device_code = ?", code, exclude)
}

func (r *repository) SerialExists(ctx context.Context, serial string, exclude uuid.UUID) (bool, error) {
	return r.exists(ctx, "serial_number = ?", serial, exclude)
}

func (r *repository) exists(ctx context.Context, where string, value any, exclude uuid.UUID) (bool, error) {
	query := r.DB(ctx).Model(&models.Device{}).Where(where, value)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.DB(ctx).Model(&models.Device{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Device{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Device, error) {
	query := r.DB(ctx).Model(&models.Device{})
	if q.Status != nil {
		query = query.Where("devices.status = ?", *q.Status)
	}
	if q.DeviceType != nil {
		query = query.Where("devices.device_type = ?", *q.DeviceType)
	}
	if q.Condition != nil {
		query = query.Where("devices.condition = ?", *q.Condition)
	}
	columns := []string{"devices.device_code", "devices.name", "devices.brand", "devices.model", "devices.serial_number"}
	if where, args := repo.Search(columns, q.Search); where != "" {
		query = query.Where(where, args...)
	}

	var rows []models.Device
	if err := query.Scopes(pagination.Scope("devices", q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountAssignments counts assignments on the device; with no statuses every
// assignment counts.
func (r *repository) CountAssignments(ctx context.Context, deviceID uuid.UUID, statuses ...enums.AssignmentStatus) (int64, error) {
	query := r.DB(ctx).Model(&models.Assignment{}).Where("device_id = ?", deviceID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CurrentAssignments returns the open assignment per device. When several are
// open, active wins over pending_return over pending_approval, then newest.
func (r *repository) CurrentAssignments(ctx context.Context, deviceIDs []uuid.UUID) (map[uuid.UUID]*models.Assignment, error) {
	out := make(map[uuid.UUID]*models.Assignment, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return out, nil
	}
	var rows []models.Assignment
	err := r.DB(ctx).
		Preload("Employee").
		Where("device_id IN ? AND status IN ?", deviceIDs, openStatuses).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		row := &rows[i]
		if prev, ok := out[row.DeviceID]; ok && openRank(prev.Status) <= openRank(row.Status) {
			continue
		}
		out[row.DeviceID] = row
	}
	return out, nil
}

func openRank(status enums.AssignmentStatus) int {
	switch status {
	case enums.AssignmentStatusActive:
		return 0
	case enums.AssignmentStatusPendingReturn:
		return 1
	default:
		return 2
	}
}
