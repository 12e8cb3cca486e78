package employees

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/ims-backend/internal/notifications"
	"github.com/angelmondragon/ims-backend/internal/sequences"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/angelmondragon/ims-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const duplicateEmailMessage = "employee with this email already exists"

// Service is the identity directory: admin CRUD, self-service profile and
// the provisioning path shared with signup.
type Service interface {
	Provision(ctx context.Context, input ProvisionInput) (*models.Employee, error)
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*EmployeeDTO, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[EmployeeDTO], error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*EmployeeDTO, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*EmployeeDTO, error)
	Deactivate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*EmployeeDTO, error)
	Profile(ctx context.Context, actor authz.Actor) (*EmployeeDTO, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, body map[string]json.RawMessage) (*EmployeeDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sequenceRepository interface {
	NextCode(ctx context.Context, name string) (string, error)
}

type sequenceFactory func(tx *gorm.DB) sequenceRepository

type sessionRevoker interface {
	RevokeAll(ctx context.Context, employeeID uuid.UUID) error
}

type welcomeNotifier interface {
	Welcome(ctx context.Context, to notifications.Recipient)
}

// ServiceParams bundles the dependencies required to build the directory service.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Sequences      func(tx *gorm.DB) sequences.Repository
	Sessions       sessionRevoker
	Notifier       welcomeNotifier
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	repo        Repository
	tx          txRunner
	sequences   sequenceFactory
	sessions    sessionRevoker
	notifier    welcomeNotifier
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("employees repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sequences == nil {
		return nil, fmt.Errorf("sequence repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo: params.Repo,
		tx:   params.Tx,
		sequences: func(tx *gorm.DB) sequenceRepository {
			return params.Sequences(tx)
		},
		sessions:    params.Sessions,
		notifier:    params.Notifier,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) Provision(ctx context.Context, input ProvisionInput) (*models.Employee, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, validationField("email", "email is required")
	}
	role := input.Role
	if role == "" {
		role = enums.EmployeeRoleEmployee
	}
	if !role.IsValid() {
		return nil, validationField("role", "invalid role")
	}

	hash, err := s.hashPassword(input.Password, email, input.FirstName, input.LastName)
	if err != nil {
		return nil, err
	}

	employee := &models.Employee{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		Department:   input.Department,
		PhoneNumber:  trimmedOrNil(input.PhoneNumber),
		IsActive:     true,
		IsStaff:      input.IsStaff || role == enums.EmployeeRoleAdmin,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		taken, err := repo.EmailExists(ctx, email, uuid.Nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check employee email")
		}
		if taken {
			return validationField("email", duplicateEmailMessage)
		}

		code, err := s.sequences(tx).NextCode(ctx, sequences.EmployeeCode)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate employee code")
		}
		employee.EmployeeCode = code

		if err := repo.Create(ctx, employee); err != nil {
			if db.IsUniqueViolation(err, "") {
				return validationField("email", duplicateEmailMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create employee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"employee_id": employee.ID.String(), "employee_code": employee.EmployeeCode, "role": string(employee.Role)})
	s.logg.Info(logCtx, "employee.created")
	return employee, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*EmployeeDTO, error) {
	if err := actor.Require(authz.CapEmployeesManage); err != nil {
		return nil, err
	}

	role := enums.EmployeeRoleEmployee
	if strings.TrimSpace(input.Role) != "" {
		parsed, err := enums.ParseEmployeeRole(input.Role)
		if err != nil {
			return nil, validationField("role", "invalid role")
		}
		role = parsed
	}
	department, err := parseDepartment(input.Department)
	if err != nil {
		return nil, err
	}

	password := ""
	if input.Password != nil {
		password = *input.Password
		if password == "" {
			return nil, validationField("password", "password cannot be blank")
		}
	}

	employee, err := s.Provision(ctx, ProvisionInput{
		Email:       input.Email,
		Password:    password,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Role:        role,
		Department:  department,
		PhoneNumber: input.PhoneNumber,
		IsStaff:     input.IsStaff,
	})
	if err != nil {
		return nil, err
	}

	s.welcome(ctx, employee)
	return FromModel(employee), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*pagination.Page[EmployeeDTO], error) {
	if err := actor.Require(authz.CapEmployeesManage); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		Role:            params.Role,
		Department:      params.Department,
		Search:          params.Search,
		IncludeInactive: params.IncludeInactive,
		Cursor:          cursor,
		Limit:           params.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list employees")
	}

	page := pagination.Build(rows, params.Limit, func(e models.Employee) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	out := pagination.Map(page, func(e models.Employee) EmployeeDTO { return *FromModel(&e) })
	return &out, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*EmployeeDTO, error) {
	if !actor.Is(id) {
		if err := actor.Require(authz.CapEmployeesManage); err != nil {
			return nil, err
		}
	}
	employee, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(employee), nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*EmployeeDTO, error) {
	if err := actor.Require(authz.CapEmployeesManage); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	email := current.Email
	if input.Email != nil {
		email = NormalizeEmail(*input.Email)
		if email == "" {
			return nil, validationField("email", "email cannot be blank")
		}
		if email != current.Email {
			updates["email"] = email
		}
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		role, err := enums.ParseEmployeeRole(*input.Role)
		if err != nil {
			return nil, validationField("role", "invalid role")
		}
		updates["role"] = role
		if role == enums.EmployeeRoleAdmin {
			updates["is_staff"] = true
		}
	}
	if input.Department != nil {
		department, err := parseDepartment(input.Department)
		if err != nil {
			return nil, err
		}
		updates["department"] = department
	}
	if input.PhoneNumber != nil {
		updates["phone_number"] = trimmedOrNil(input.PhoneNumber)
	}
	if input.IsStaff != nil {
		updates["is_staff"] = *input.IsStaff
	}
	deactivating := false
	if input.IsActive != nil {
		if !*input.IsActive && actor.Is(id) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "you cannot deactivate your own account")
		}
		updates["is_active"] = *input.IsActive
		deactivating = current.IsActive && !*input.IsActive
	}
	if input.Password != nil {
		first, last := current.FirstName, current.LastName
		if v, ok := updates["first_name"].(string); ok {
			first = v
		}
		if v, ok := updates["last_name"].(string); ok {
			last = v
		}
		if *input.Password == "" {
			return nil, validationField("password", "password cannot be blank")
		}
		hash, err := s.hashPassword(*input.Password, email, first, last)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, changed := updates["email"]; changed {
			taken, err := repo.EmailExists(ctx, email, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check employee email")
			}
			if taken {
				return validationField("email", duplicateEmailMessage)
			}
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return validationField("email", duplicateEmailMessage)
			}
			return mapRepoError(err, "update employee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deactivating || input.Password != nil {
		s.revokeSessions(ctx, id)
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Deactivate(ctx context.Context, actor authz.Actor, id uuid.UUID) (*EmployeeDTO, error) {
	if err := actor.Require(authz.CapEmployeesManage); err != nil {
		return nil, err
	}
	if actor.Is(id) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "you cannot deactivate your own account")
	}
	employee, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee.IsActive {
		if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
			return nil, mapRepoError(err, "deactivate employee")
		}
		s.revokeSessions(ctx, id)
		s.logg.Info(s.logg.WithEmployeeID(ctx, id.String()), "employee.deactivated")
	}
	employee, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(employee), nil
}

func (s *service) Profile(ctx context.Context, actor authz.Actor) (*EmployeeDTO, error) {
	employee, err := s.load(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	return FromModel(employee), nil
}

// UpdateProfile takes the raw JSON object so protected keys can be reported
// by name instead of being silently dropped.
func (s *service) UpdateProfile(ctx context.Context, actor authz.Actor, body map[string]json.RawMessage) (*EmployeeDTO, error) {
	var protected []string
	for _, field := range ProtectedProfileFields {
		if _, ok := body[field]; ok {
			protected = append(protected, field)
		}
	}
	if len(protected) > 0 {
		sort.Strings(protected)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot update protected fields").
			WithDetails(map[string]any{"fields": protected})
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid profile payload")
	}
	var input ProfileUpdate
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid profile payload")
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Department != nil {
		department, err := parseDepartment(input.Department)
		if err != nil {
			return nil, err
		}
		updates["department"] = department
	}
	if input.PhoneNumber != nil {
		updates["phone_number"] = trimmedOrNil(input.PhoneNumber)
	}

	if err := s.repo.Update(ctx, actor.EmployeeID, updates); err != nil {
		return nil, mapRepoError(err, "update profile")
	}
	return s.Profile(ctx, actor)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load employee")
	}
	return employee, nil
}

func (s *service) hashPassword(password, email, first, last string) (string, error) {
	if password == "" {
		unusable, err := security.GenerateUnusablePassword()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = unusable
	} else if problems := security.PasswordPolicyViolations(password, emailLocalPart(email), first, last); len(problems) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "password does not meet requirements").
			WithDetails(map[string]any{"password": problems})
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func (s *service) revokeSessions(ctx context.Context, id uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		s.logg.Error(s.logg.WithEmployeeID(ctx, id.String()), "employee.revoke_sessions_failed", err)
	}
}

func (s *service) welcome(ctx context.Context, employee *models.Employee) {
	if s.notifier == nil {
		return
	}
	s.notifier.Welcome(ctx, RecipientFor(employee))
}

// RecipientFor builds the email recipient for an employee.
func RecipientFor(employee *models.Employee) notifications.Recipient {
	return notifications.Recipient{
		Email:        employee.Email,
		Name:         employee.FullName(),
		EmployeeCode: employee.EmployeeCode,
	}
}

// NormalizeEmail lower-cases and trims; email is the login identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func parseDepartment(value *string) (*enums.Department, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	department, err := enums.ParseDepartment(*value)
	if err != nil {
		return nil, validationField("department", "invalid department")
	}
	return &department, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validationField(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func mapRepoError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
