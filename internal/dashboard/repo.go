package dashboard

import (
	"context"

	"github.com/angelmondragon/ims-backend/internal/repo"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository interface {
	CountBy(ctx context.Context, model any, column string) (map[string]int64, error)
	CountActiveEmployees(ctx context.Context) (int64, error)
	CountEmployeesHoldingDevices(ctx context.Context) (int64, error)
	RecentAssignments(ctx context.Context, limit int) ([]models.Assignment, error)
	RecentTickets(ctx context.Context, limit int) ([]models.TicketRequest, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

type groupCount struct {
	GroupKey string
	Count    int64
}

// CountBy groups model rows by column. column must be a trusted identifier.
func (r *repository) CountBy(ctx context.Context, model any, column string) (map[string]int64, error) {
	var rows []groupCount
	err := r.DB(ctx).Model(model).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.GroupKey] = row.Count
	}
	return out, nil
}

func (r *repository) CountActiveEmployees(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Employee{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *repository) CountEmployeesHoldingDevices(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Employee{}).
		Where("is_active = ?", true).
		Where("EXISTS (SELECT 1 FROM assignments a WHERE a.employee_id = employees.id AND a.status = ?)", enums.AssignmentStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) RecentAssignments(ctx context.Context, limit int) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.DB(ctx).Preload("Device").Preload("Employee").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) RecentTickets(ctx context.Context, limit int) ([]models.TicketRequest, error) {
	var rows []models.TicketRequest
	err := r.DB(ctx).Preload("RequestedBy").Preload("AssignedTo").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
