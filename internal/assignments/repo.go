package assignments

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

var relations = []string{"Device", "Employee", "AssignedBy", "AssignmentApprovedBy", "ReturnApprovedBy"}

// Repository persists assignments and the device status they drive.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.AssignmentStatus, updates map[string]any) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountActive(ctx context.Context, deviceID uuid.UUID, exclude uuid.UUID) (int64, error)
	LockDevice(ctx context.Context, deviceID uuid.UUID) (*models.Device, error)
	SetDeviceStatus(ctx context.Context, deviceID uuid.UUID, status enums.DeviceStatus) error
	FindEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	List(ctx context.Context, q listQuery) ([]models.Assignment, error)
	ListActiveForEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Assignment, error)
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

func (r *repository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.DB(ctx).Omit(relations...).Create(assignment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	query := r.DB(ctx)
	for _, rel := range relations {
		query = query.Preload(rel)
	}
	var assignment models.Assignment
	if err := query.Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.Locked(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Transition applies updates only while the row is still in from. A zero
// row count means another writer moved it first.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.AssignmentStatus, updates map[string]any) (int64, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Assignment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountActive(ctx context.Context, deviceID uuid.UUID, exclude uuid.UUID) (int64, error) {
	query := r.DB(ctx).Model(&models.Assignment{}).
		Where("device_id = ? AND status = ?", deviceID, enums.AssignmentStatusActive)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) LockDevice(ctx context.Context, deviceID uuid.UUID) (*models.Device, error) {
	var device models.Device
	if err := r.Locked(ctx).Where("id = ?", deviceID).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *repository) SetDeviceStatus(ctx context.Context, deviceID uuid.UUID, status enums.DeviceStatus) error {
	return r.DB(ctx).Model(&models.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) FindEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := r.DB(ctx).Where("id = ?", id).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Assignment, error) {
	query := r.DB(ctx).Model(&models.Assignment{}).Preload("Device").Preload("Employee")
	if q.Status != nil {
		query = query.Where("assignments.status = ?", *q.Status)
	}
	if q.EmployeeID != nil {
		query = query.Where("assignments.employee_id = ?", *q.EmployeeID)
	}
	if q.DeviceID != nil {
		query = query.Where("assignments.device_id = ?", *q.DeviceID)
	}
	columns := []string{"d.device_code", "d.name", "e.first_name", "e.last_name", "e.employee_code"}
	if where, args := repo.Search(columns, q.Search); where != "" {
		query = query.
			Select("assignments.*").
			Joins("JOIN devices d ON d.id = assignments.device_id").
			Joins("JOIN employees e ON e.id = assignments.employee_id").
			Where(where, args...)
	}

	var rows []models.Assignment
	if err := query.Scopes(pagination.Scope("assignments", q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActiveForEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.DB(ctx).Preload("Device").Preload("Employee").
		Where("employee_id = ? AND status = ?", employeeID, enums.AssignmentStatusActive).
		Order("assigned_date DESC").
		Find(&rows).Error
	return rows, err
}
