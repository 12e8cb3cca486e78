package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/internal/sequences"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service tracks support tickets. Tickets never mutate devices or employees.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*TicketDTO, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*TicketDTO, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[TicketDTO], error)
	Mine(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[TicketDTO], error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*TicketDTO, error)
	Assign(ctx context.Context, actor authz.Actor, id uuid.UUID, input AssignInput) (*TicketDTO, error)
	Resolve(ctx context.Context, actor authz.Actor, id uuid.UUID, input ResolveInput) (*TicketDTO, error)
	Close(ctx context.Context, actor authz.Actor, id uuid.UUID, input CloseInput) (*TicketDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo      Repository
	Sequences sequences.Repository
	Tx        txRunner
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	repo      Repository
	sequences sequences.Repository
	tx        txRunner
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	if params.Sequences == nil {
		return nil, fmt.Errorf("sequences repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		sequences: params.Sequences,
		tx:        params.Tx,
		logg:      params.Logger,
		now:       clock,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*TicketDTO, error) {
	ticketType, err := enums.ParseTicketType(strings.TrimSpace(input.TicketType))
	if err != nil {
		return nil, validationField("ticket_type", "invalid ticket type")
	}
	priority := enums.TicketPriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		if priority, err = enums.ParseTicketPriority(strings.TrimSpace(input.Priority)); err != nil {
			return nil, validationField("priority", "invalid priority")
		}
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, validationField("subject", "subject is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, validationField("description", "description is required")
	}

	ticket := &models.TicketRequest{
		RequestedByID: actor.EmployeeID,
		TicketType:    ticketType,
		Priority:      priority,
		Status:        enums.TicketStatusPending,
		DeviceID:      input.DeviceID,
		Subject:       subject,
		Description:   input.Description,
		AttachmentURL: input.AttachmentURL,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := checkDevice(ctx, repo, input.DeviceID); err != nil {
			return err
		}
		number, err := s.sequences.WithTx(tx).NextCode(ctx, sequences.TicketNumber)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate ticket number")
		}
		ticket.TicketNumber = number
		if err := repo.Create(ctx, ticket); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "ticket number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logCtx(ctx, ticket), "ticket.created")
	return s.load(ctx, ticket.ID)
}

// Update edits an open ticket. Only the requester and ticket managers may.
func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*TicketDTO, error) {
	updates := map[string]any{}
	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, validationField("subject", "subject is required")
		}
		updates["subject"] = subject
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return nil, validationField("description", "description is required")
		}
		updates["description"] = *input.Description
	}
	if input.Priority != nil {
		priority, err := enums.ParseTicketPriority(strings.TrimSpace(*input.Priority))
		if err != nil {
			return nil, validationField("priority", "invalid priority")
		}
		updates["priority"] = priority
	}
	if input.DeviceID != nil {
		updates["device_id"] = *input.DeviceID
	}
	if input.AttachmentURL != nil {
		updates["attachment_url"] = strings.TrimSpace(*input.AttachmentURL)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.visibleForUpdate(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if !actor.Is(ticket.RequestedByID) && !actor.Can(authz.CapTicketsManage) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester or an admin/manager can edit this ticket")
		}
		if !ticket.Status.IsOpen() {
			return stateConflict("only open tickets can be edited")
		}
		if err := checkDevice(ctx, repo, input.DeviceID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return mapRepoError(repo.Update(ctx, id, updates), "update ticket")
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithTicketID(ctx, id.String()), "ticket.updated")
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[TicketDTO], error) {
	q, err := queryFrom(params)
	if err != nil {
		return nil, err
	}
	if !actor.Can(authz.CapTicketsViewAll) {
		self := actor.EmployeeID
		q.VisibleTo = &self
	}
	return s.list(ctx, q, params.Limit)
}

func (s *service) Mine(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[TicketDTO], error) {
	q, err := queryFrom(params)
	if err != nil {
		return nil, err
	}
	self := actor.EmployeeID
	q.RequestedBy = &self
	return s.list(ctx, q, params.Limit)
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*TicketDTO, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load ticket")
	}
	if !canSee(actor, ticket) {
		return nil, notFound()
	}
	return FromModel(ticket), nil
}

func (s *service) Assign(ctx context.Context, actor authz.Actor, id uuid.UUID, input AssignInput) (*TicketDTO, error) {
	if err := actor.Require(authz.CapTicketsManage); err != nil {
		return nil, err
	}
	if input.AssignedTo == nil || *input.AssignedTo == uuid.Nil {
		return nil, validationField("assigned_to", "employee ID is required")
	}
	assignee := *input.AssignedTo

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapRepoError(err, "lock ticket")
		}
		exists, err := repo.EmployeeExists(ctx, assignee)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		if !ticket.Status.IsOpen() {
			return stateConflict("only open tickets can be assigned")
		}
		return mapRepoError(repo.Update(ctx, id, map[string]any{
			"assigned_to_id": assignee,
			"status":         enums.TicketStatusInProgress,
		}), "assign ticket")
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"ticket_id": id.String(), "assigned_to": assignee.String()})
	s.logg.Info(logCtx, "ticket.assigned")
	return s.load(ctx, id)
}

// Resolve sets status and resolved_at together, once.
func (s *service) Resolve(ctx context.Context, actor authz.Actor, id uuid.UUID, input ResolveInput) (*TicketDTO, error) {
	notes := strings.TrimSpace(input.ResolutionNotes)
	if notes == "" {
		return nil, validationField("resolution_notes", "resolution notes are required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.visibleForUpdate(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if !actor.Can(authz.CapTicketsManage) && !isAssignee(actor, ticket) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assignee or an admin/manager can resolve this ticket")
		}
		if ticket.Status == enums.TicketStatusResolved {
			return stateConflict("ticket is already resolved")
		}
		if !ticket.Status.IsOpen() {
			return stateConflict("only open tickets can be resolved")
		}
		return mapRepoError(repo.Update(ctx, id, map[string]any{
			"status":           enums.TicketStatusResolved,
			"resolution_notes": notes,
			"resolved_at":      s.now(),
		}), "resolve ticket")
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithTicketID(ctx, id.String()), "ticket.resolved")
	return s.load(ctx, id)
}

// Close rejects an open ticket or closes an open or resolved one.
func (s *service) Close(ctx context.Context, actor authz.Actor, id uuid.UUID, input CloseInput) (*TicketDTO, error) {
	if err := actor.Require(authz.CapTicketsManage); err != nil {
		return nil, err
	}
	target, err := enums.ParseTicketStatus(strings.TrimSpace(input.Status))
	if err != nil || (target != enums.TicketStatusRejected && target != enums.TicketStatusClosed) {
		return nil, validationField("status", "status must be rejected or closed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapRepoError(err, "lock ticket")
		}
		allowed := ticket.Status.IsOpen() ||
			(target == enums.TicketStatusClosed && ticket.Status == enums.TicketStatusResolved)
		if !allowed {
			return stateConflict(fmt.Sprintf("cannot move a %s ticket to %s", ticket.Status, target))
		}
		updates := map[string]any{"status": target}
		if input.ResolutionNotes != nil && strings.TrimSpace(*input.ResolutionNotes) != "" {
			updates["resolution_notes"] = strings.TrimSpace(*input.ResolutionNotes)
		}
		return mapRepoError(repo.Update(ctx, id, updates), "close ticket")
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"ticket_id": id.String(), "status": string(target)})
	s.logg.Info(logCtx, "ticket.closed")
	return s.load(ctx, id)
}

func (s *service) list(ctx context.Context, q listQuery, limit int) (*pagination.Page[TicketDTO], error) {
	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	page := pagination.Build(rows, limit, func(t models.TicketRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := pagination.Map(page, func(t models.TicketRequest) TicketDTO { return *FromModel(&t) })
	return &out, nil
}

func (s *service) visibleForUpdate(ctx context.Context, repo Repository, actor authz.Actor, id uuid.UUID) (*models.TicketRequest, error) {
	ticket, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "lock ticket")
	}
	if !canSee(actor, ticket) {
		return nil, notFound()
	}
	return ticket, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*TicketDTO, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load ticket")
	}
	return FromModel(ticket), nil
}

func (s *service) logCtx(ctx context.Context, t *models.TicketRequest) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"ticket_id":     t.ID.String(),
		"ticket_number": t.TicketNumber,
		"employee_id":   t.RequestedByID.String(),
	})
}

func queryFrom(params ListParams) (listQuery, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return listQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return listQuery{
		Status:     params.Status,
		TicketType: params.TicketType,
		Priority:   params.Priority,
		Search:     params.Search,
		Cursor:     cursor,
		Limit:      params.Limit,
	}, nil
}

func checkDevice(ctx context.Context, repo Repository, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	exists, err := repo.DeviceExists(ctx, *id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device")
	}
	if !exists {
		return validationField("device_id", "device not found")
	}
	return nil
}

// canSee is true for ticket viewers, the requester and the assignee.
func canSee(actor authz.Actor, t *models.TicketRequest) bool {
	return actor.Can(authz.CapTicketsViewAll) || actor.Is(t.RequestedByID) || isAssignee(actor, t)
}

func isAssignee(actor authz.Actor, t *models.TicketRequest) bool {
	return t.AssignedToID != nil && actor.Is(*t.AssignedToID)
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
}

func stateConflict(message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message)
}

func validationField(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func mapRepoError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
