package employees

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/internal/repo"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes employee persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, employee *models.Employee) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, q listQuery) ([]models.Employee, error)
}

type repository struct {
	repo.Base
}

// NewRepository constructs an employees repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, employee *models.Employee) error {
	return r.DB(ctx).Create(employee).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := r.DB(ctx).First(&employee, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByEmail matches the normalized (lower-case) email.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	var employee models.Employee
	if err := r.DB(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *repository) EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	query := r.DB(ctx).Model(&models.Employee{}).Where("email = ?", email)
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
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	result := r.DB(ctx).Model(&models.Employee{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Employee{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Employee, error) {
	query := r.DB(ctx).Model(&models.Employee{})
	if !q.IncludeInactive {
		query = query.Where("employees.is_active = ?", true)
	}
	if q.Role != nil {
		query = query.Where("employees.role = ?", *q.Role)
	}
	if q.Department != nil {
		query = query.Where("employees.department = ?", *q.Department)
	}
	if where, args := repo.Search([]string{"employees.email", "employees.first_name", "employees.last_name", "employees.employee_code"}, q.Search); where != "" {
		query = query.Where(where, args...)
	}

	var rows []models.Employee
	if err := query.Scopes(pagination.Scope("employees", q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
