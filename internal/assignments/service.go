package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/metrics"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/angelmondragon/ims-backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	evidenceApproval = "approval"
	evidenceReturn   = "return"

	msgDeviceHasActive = "device already has an active assignment"
)

// Service is the assignment engine: lifecycle transitions with evidence,
// each committed together with the device status it implies.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*AssignmentDTO, error)
	ApproveAssignment(ctx context.Context, actor authz.Actor, id uuid.UUID, input ApproveAssignmentInput) (*AssignmentDTO, error)
	RequestReturn(ctx context.Context, actor authz.Actor, id uuid.UUID, input ReturnRequestInput) (*AssignmentDTO, error)
	ApproveReturn(ctx context.Context, actor authz.Actor, id uuid.UUID, input ApproveReturnInput) (*AssignmentDTO, error)
	ReturnDevice(ctx context.Context, actor authz.Actor, id uuid.UUID, input ReturnRequestInput) (*AssignmentDTO, error)
	ReportIncident(ctx context.Context, actor authz.Actor, id uuid.UUID, input IncidentInput) (*AssignmentDTO, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*AssignmentDTO, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[AssignmentDTO], error)
	Mine(ctx context.Context, actor authz.Actor) ([]AssignmentDTO, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*AssignmentDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build the assignment engine.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Storage storage.Store
	Metrics *metrics.AssignmentMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	store   storage.Store
	metrics *metrics.AssignmentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("evidence storage required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		store:   params.Storage,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     clock,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*AssignmentDTO, error) {
	employeeID := actor.EmployeeID
	if input.EmployeeID != nil && *input.EmployeeID != uuid.Nil {
		employeeID = *input.EmployeeID
	}
	if !actor.Is(employeeID) {
		if err := actor.Require(authz.CapAssignmentsOnBehalf); err != nil {
			return nil, err
		}
	}

	// Only a request that explicitly asks for pending_approval may queue
	// behind a device that is held or under repair.
	status := enums.AssignmentStatusPendingApproval
	checkAvailability := true
	if strings.TrimSpace(input.Status) != "" {
		parsed, err := enums.ParseAssignmentStatus(input.Status)
		if err != nil || (parsed != enums.AssignmentStatusPendingApproval && parsed != enums.AssignmentStatusActive) {
			return nil, validationField("status", "initial status must be pending_approval or active")
		}
		status = parsed
		checkAvailability = status == enums.AssignmentStatusActive
	}
	if status == enums.AssignmentStatusActive {
		if err := actor.Require(authz.CapAssignmentsApprove); err != nil {
			return nil, err
		}
	}
	if input.DeviceID == uuid.Nil {
		return nil, validationField("device_id", "device is required")
	}

	assignment := &models.Assignment{
		DeviceID:        input.DeviceID,
		EmployeeID:      employeeID,
		Status:          status,
		AssignedDate:    s.now(),
		AssignmentNotes: input.AssignmentNotes,
	}
	if actor.EmployeeID != uuid.Nil {
		assignedBy := actor.EmployeeID
		assignment.AssignedByID = &assignedBy
	}
	if input.ExpectedReturnDate != nil {
		assignment.ExpectedReturnDate = input.ExpectedReturnDate.Ptr()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		device, err := repo.LockDevice(ctx, input.DeviceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "device not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock device")
		}
		employee, err := repo.FindEmployee(ctx, employeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationField("employee_id", "employee not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
		}
		if !employee.IsActive {
			return validationField("employee_id", "employee is inactive")
		}
		if device.Status == enums.DeviceStatusRetired {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot assign device: device is retired")
		}
		if checkAvailability {
			if device.Status == enums.DeviceStatusMaintenance {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot assign device: device is under maintenance")
			}
			active, err := repo.CountActive(ctx, device.ID, uuid.Nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active assignments")
			}
			if active > 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, msgDeviceHasActive)
			}
		}

		if err := repo.Create(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, msgDeviceHasActive)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		return s.syncDevice(ctx, repo, device, status)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition("", string(status))
	s.logg.Info(s.logCtx(ctx, assignment, "", status), "assignment.created")
	return s.load(ctx, assignment.ID)
}

func (s *service) ApproveAssignment(ctx context.Context, actor authz.Actor, id uuid.UUID, input ApproveAssignmentInput) (*AssignmentDTO, error) {
	if err := actor.Require(authz.CapAssignmentsApprove); err != nil {
		return nil, err
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.AssignmentStatusPendingApproval {
		return nil, stateConflict("only pending assignments can be approved")
	}
	if len(input.Image) == 0 {
		return nil, validationField("assignment_image", "assignment image is required for approval")
	}

	return s.withEvidence(ctx, id, evidenceApproval, "assignment_image", input.Image, func(url string) transition {
		approver := actor.EmployeeID
		return transition{
			event:     "assignment.approved",
			from:      []enums.AssignmentStatus{enums.AssignmentStatusPendingApproval},
			fromError: "only pending assignments can be approved",
			to:        enums.AssignmentStatusActive,
			guard: func(ctx context.Context, repo Repository, a *models.Assignment) error {
				active, err := repo.CountActive(ctx, a.DeviceID, a.ID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active assignments")
				}
				if active > 0 {
					return stateConflict(msgDeviceHasActive)
				}
				return nil
			},
			updates: func(now time.Time) map[string]any {
				return map[string]any{
					"assignment_image":          url,
					"assignment_undertaking":    input.Undertaking,
					"assignment_approved_by_id": approver,
					"assignment_approved_date":  now,
				}
			},
		}
	})
}

func (s *service) RequestReturn(ctx context.Context, actor authz.Actor, id uuid.UUID, input ReturnRequestInput) (*AssignmentDTO, error) {
	if _, err := s.ownedOrApprover(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, transition{
		event:     "assignment.return_requested",
		from:      []enums.AssignmentStatus{enums.AssignmentStatusActive},
		fromError: "only active assignments can request return",
		to:        enums.AssignmentStatusPendingReturn,
		updates: func(time.Time) map[string]any {
			return map[string]any{"return_notes": input.ReturnNotes}
		},
	})
}

func (s *service) ApproveReturn(ctx context.Context, actor authz.Actor, id uuid.UUID, input ApproveReturnInput) (*AssignmentDTO, error) {
	if err := actor.Require(authz.CapAssignmentsApprove); err != nil {
		return nil, err
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.AssignmentStatusPendingReturn {
		return nil, stateConflict("only pending returns can be approved")
	}
	if len(input.Image) == 0 {
		return nil, validationField("return_image", "return image is required for approval")
	}
	condition := enums.DeviceConditionGood
	if strings.TrimSpace(input.Condition) != "" {
		if condition, err = enums.ParseDeviceCondition(strings.TrimSpace(input.Condition)); err != nil {
			return nil, validationField("device_condition_on_return", "invalid device condition")
		}
	}

	return s.withEvidence(ctx, id, evidenceReturn, "return_image", input.Image, func(url string) transition {
		approver := actor.EmployeeID
		return transition{
			event:     "assignment.return_approved",
			from:      []enums.AssignmentStatus{enums.AssignmentStatusPendingReturn},
			fromError: "only pending returns can be approved",
			to:        enums.AssignmentStatusReturned,
			updates: func(now time.Time) map[string]any {
				return map[string]any{
					"return_image":               url,
					"device_condition_on_return": condition,
					"device_broken":              input.DeviceBroken,
					"return_approved_by_id":      approver,
					"return_approved_date":       now,
					"return_date":                now,
				}
			},
		}
	})
}

// ReturnDevice is the legacy path that closes an assignment without evidence.
func (s *service) ReturnDevice(ctx context.Context, actor authz.Actor, id uuid.UUID, input ReturnRequestInput) (*AssignmentDTO, error) {
	if _, err := s.ownedOrApprover(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, transition{
		event:     "assignment.returned",
		from:      []enums.AssignmentStatus{enums.AssignmentStatusActive, enums.AssignmentStatusPendingReturn},
		fromError: "only active or pending return assignments can be returned",
		to:        enums.AssignmentStatusReturned,
		updates: func(now time.Time) map[string]any {
			return map[string]any{"return_date": now, "return_notes": input.ReturnNotes}
		},
	})
}

func (s *service) ReportIncident(ctx context.Context, actor authz.Actor, id uuid.UUID, input IncidentInput) (*AssignmentDTO, error) {
	if err := actor.Require(authz.CapAssignmentsApprove); err != nil {
		return nil, err
	}
	outcome, err := enums.ParseAssignmentStatus(strings.TrimSpace(input.Outcome))
	if err != nil || (outcome != enums.AssignmentStatusLost && outcome != enums.AssignmentStatusDamaged) {
		return nil, validationField("outcome", "outcome must be lost or damaged")
	}
	return s.apply(ctx, id, transition{
		event:     "assignment.incident_reported",
		from:      []enums.AssignmentStatus{enums.AssignmentStatusActive, enums.AssignmentStatusPendingApproval},
		fromError: "only active or pending assignments can be reported lost or damaged",
		to:        outcome,
		updates: func(time.Time) map[string]any {
			return map[string]any{
				"return_notes":  input.Notes,
				"device_broken": outcome == enums.AssignmentStatusDamaged,
			}
		},
	})
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*AssignmentDTO, error) {
	if err := actor.Require(authz.CapAssignmentsApprove); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if input.AssignmentNotes != nil {
		updates["assignment_notes"] = *input.AssignmentNotes
	}
	if input.ExpectedReturnDate != nil {
		updates["expected_return_date"] = input.ExpectedReturnDate.Ptr()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapRepoError(err, "lock assignment")
		}
		device, err := repo.LockDevice(ctx, current.DeviceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock device")
		}
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return mapRepoError(err, "update assignment")
			}
		}
		return s.syncDevice(ctx, repo, device, current.Status)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithAssignmentID(ctx, id.String()), "assignment.updated")
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[AssignmentDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q := listQuery{
		Status:     params.Status,
		EmployeeID: params.EmployeeID,
		DeviceID:   params.DeviceID,
		Search:     params.Search,
		Cursor:     cursor,
		Limit:      params.Limit,
	}
	if !actor.Can(authz.CapAssignmentsViewAll) {
		self := actor.EmployeeID
		q.EmployeeID = &self
	}
	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	page := pagination.Build(rows, params.Limit, func(a models.Assignment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	out := pagination.Map(page, func(a models.Assignment) AssignmentDTO { return *FromModel(&a) })
	return &out, nil
}

func (s *service) Mine(ctx context.Context, actor authz.Actor) ([]AssignmentDTO, error) {
	rows, err := s.repo.ListActiveForEmployee(ctx, actor.EmployeeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list my assignments")
	}
	out := make([]AssignmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Get hides other employees' assignments behind 404 for non-privileged actors.
func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*AssignmentDTO, error) {
	assignment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(authz.CapAssignmentsViewAll) && !actor.Is(assignment.EmployeeID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return FromModel(assignment), nil
}

type transition struct {
	event     string
	from      []enums.AssignmentStatus
	fromError string
	to        enums.AssignmentStatus
	guard     func(ctx context.Context, repo Repository, a *models.Assignment) error
	updates   func(now time.Time) map[string]any
}

func (t transition) allows(status enums.AssignmentStatus) bool {
	for _, from := range t.from {
		if from == status {
			return true
		}
	}
	return false
}

// apply runs one transition in a transaction: lock the assignment, check
// its status, lock the device, run the guard, conditionally update, sync.
func (s *service) apply(ctx context.Context, id uuid.UUID, t transition) (*AssignmentDTO, error) {
	var (
		before   *models.Assignment
		previous enums.AssignmentStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapRepoError(err, "lock assignment")
		}
		if !t.allows(current.Status) {
			return stateConflict(t.fromError)
		}
		device, err := repo.LockDevice(ctx, current.DeviceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock device")
		}
		if t.guard != nil {
			if err := t.guard(ctx, repo, current); err != nil {
				return err
			}
		}

		updates := map[string]any{}
		if t.updates != nil {
			updates = t.updates(s.now())
		}
		updates["status"] = t.to
		rows, err := repo.Transition(ctx, id, current.Status, updates)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, msgDeviceHasActive)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
		}
		if rows == 0 {
			return stateConflict(t.fromError)
		}
		before, previous = current, current.Status
		return s.syncDevice(ctx, repo, device, t.to)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(previous), string(t.to))
	s.logg.Info(s.logCtx(ctx, before, previous, t.to), t.event)
	return s.load(ctx, id)
}

// withEvidence stores the image before the transaction and removes it again
// when the transition does not commit.
func (s *service) withEvidence(ctx context.Context, id uuid.UUID, kind, field string, data []byte, build func(url string) transition) (*AssignmentDTO, error) {
	img, err := storage.DetectImage(data)
	if err != nil {
		return nil, validationField(field, "file must be an image")
	}
	key := storage.EvidenceKey(id, kind, img.Extension)
	url, err := s.store.Put(ctx, key, img.ContentType, img.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store evidence image")
	}

	dto, err := s.apply(ctx, id, build(url))
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logg.Error(s.logg.WithAssignmentID(ctx, id.String()), "assignment.evidence_cleanup_failed", delErr)
		}
		return nil, err
	}
	return dto, nil
}

// syncDevice writes the device status implied by the assignment write. It
// must run inside the transition's transaction with the device row locked.
func (s *service) syncDevice(ctx context.Context, repo Repository, device *models.Device, written enums.AssignmentStatus) error {
	active, err := repo.CountActive(ctx, device.ID, uuid.Nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active assignments")
	}
	next := DeviceStatusAfter(device.Status, written, active > 0)
	if next == device.Status {
		return nil
	}
	if err := repo.SetDeviceStatus(ctx, device.ID, next); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync device status")
	}
	device.Status = next
	return nil
}

// ownedOrApprover allows the assignee and privileged actors. Others get the
// same 404 as for a missing assignment.
func (s *service) ownedOrApprover(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Is(assignment.EmployeeID) || actor.Can(authz.CapAssignmentsApprove) {
		return assignment, nil
	}
	if actor.Can(authz.CapAssignmentsViewAll) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the assignee or an admin/manager can do this")
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load assignment")
	}
	return assignment, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*AssignmentDTO, error) {
	assignment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(assignment), nil
}

func (s *service) logCtx(ctx context.Context, a *models.Assignment, from, to enums.AssignmentStatus) context.Context {
	fields := map[string]any{"to": string(to)}
	if from != "" {
		fields["from"] = string(from)
	}
	if a != nil {
		fields["assignment_id"] = a.ID.String()
		fields["device_id"] = a.DeviceID.String()
		fields["employee_id"] = a.EmployeeID.String()
	}
	return s.logg.WithFields(ctx, fields)
}

func stateConflict(message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message)
}

func validationField(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func mapRepoError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
