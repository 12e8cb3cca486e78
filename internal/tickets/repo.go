package tickets

import (
	"context"
	"time"

	"github.com/angelmondragon/ims-backend/internal/repo"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var relations = []string{"RequestedBy", "AssignedTo", "Device"}

// Repository persists ticket requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.TicketRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TicketRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TicketRequest, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, q listQuery) ([]models.TicketRequest, error)
	EmployeeExists(ctx context.Context, id uuid.UUID) (bool, error)
	DeviceExists(ctx context.Context, id uuid.UUID) (bool, error)
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

func (r *repository) Create(ctx context.Context, ticket *models.TicketRequest) error {
	return r.DB(ctx).Omit(relations...).Create(ticket).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TicketRequest, error) {
	query := r.DB(ctx)
	for _, rel := range relations {
		query = query.Preload(rel)
	}
	var ticket models.TicketRequest
	if err := query.Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TicketRequest, error) {
	var ticket models.TicketRequest
	if err := r.Locked(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.DB(ctx).Model(&models.TicketRequest{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.TicketRequest, error) {
	query := r.DB(ctx).Model(&models.TicketRequest{}).Preload("RequestedBy").Preload("AssignedTo")
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.TicketType != nil {
		query = query.Where("ticket_type = ?", *q.TicketType)
	}
	if q.Priority != nil {
		query = query.Where("priority = ?", *q.Priority)
	}
	if q.RequestedBy != nil {
		query = query.Where("requested_by_id = ?", *q.RequestedBy)
	}
	if q.VisibleTo != nil {
		query = query.Where("(requested_by_id = ? OR assigned_to_id = ?)", *q.VisibleTo, *q.VisibleTo)
	}
	if where, args := repo.Search([]string{"ticket_number", "subject", "description"}, q.Search); where != "" {
		query = query.Where(where, args...)
	}

	var rows []models.TicketRequest
	if err := query.Scopes(pagination.Scope("ticket_requests", q.Cursor, q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) EmployeeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Employee{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *repository) DeviceExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Device{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
