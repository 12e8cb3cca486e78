package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ims-backend/internal/employees"
	"github.com/angelmondragon/ims-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/ims-backend/pkg/auth"
	"github.com/angelmondragon/ims-backend/pkg/auth/session"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidResetTokenMessage  = "invalid or expired token"
	resetRequestedMessage     = "if an active account exists for this email, a password reset link has been sent"
	passwordMismatchMessage   = "passwords do not match"
	resetTokenBytes           = 32
	defaultResetTTL           = 24 * time.Hour
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	ChangePassword(ctx context.Context, actor authz.Actor, req ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, req ResetRequest) (*MessageResponse, error)
	VerifyResetToken(ctx context.Context, token string) (*ResetVerification, error)
	ConfirmPasswordReset(ctx context.Context, req ResetConfirmRequest) (*MessageResponse, error)
}

type sessionManager interface {
	Generate(ctx context.Context, employeeID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, employeeID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, employeeID uuid.UUID, accessID string) error
	RevokeAll(ctx context.Context, employeeID uuid.UUID) error
}

type provisioner interface {
	Provision(ctx context.Context, input employees.ProvisionInput) (*models.Employee, error)
}

type notifier interface {
	Welcome(ctx context.Context, to notifications.Recipient)
	PasswordReset(ctx context.Context, to notifications.Recipient, token string)
	PasswordChanged(ctx context.Context, to notifications.Recipient)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Employees      employees.Repository
	Provisioner    provisioner
	ResetTokens    ResetTokenRepository
	Sessions       sessionManager
	Notifier       notifier
	Tx             txRunner
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ResetTTL       time.Duration
	Logger         *logger.Logger
	Clock          func() time.Time
}

type service struct {
	employees   employees.Repository
	provisioner provisioner
	resets      ResetTokenRepository
	sessions    sessionManager
	notifier    notifier
	tx          txRunner
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	resetTTL    time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Employees == nil {
		return nil, fmt.Errorf("employee repository is required")
	}
	if params.Provisioner == nil {
		return nil, fmt.Errorf("employee provisioner is required")
	}
	if params.ResetTokens == nil {
		return nil, fmt.Errorf("reset token repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	ttl := params.ResetTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		employees:   params.Employees,
		provisioner: params.Provisioner,
		resets:      params.ResetTokens,
		sessions:    params.Sessions,
		notifier:    params.Notifier,
		tx:          params.Tx,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		resetTTL:    ttl,
		logg:        params.Logger,
		now:         clock,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	employee, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.employees.UpdateLastLogin(ctx, employee.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record last login")
	}
	employee.LastLoginAt = &now

	resp, err := s.issueTokens(ctx, employee)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithEmployeeID(ctx, employee.ID.String()), "auth.login")
	return resp, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Employee, error) {
	employee, err := s.employees.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup employee")
	}
	if !employee.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	ok, err := security.VerifyPassword(password, employee.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(employee.PasswordHash, s.passwordCfg) {
		s.upgradeHash(ctx, employee, password)
	}
	return employee, nil
}

// upgradeHash re-encodes a verified password at the current cost. Failure
// leaves the old hash in place and the login proceeds.
func (s *service) upgradeHash(ctx context.Context, employee *models.Employee, password string) {
	logCtx := s.logg.WithEmployeeID(ctx, employee.ID.String())
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.employees.Update(ctx, employee.ID, map[string]any{"password_hash": hash})
	}
	if err != nil {
		s.logg.Error(logCtx, "auth.rehash_failed", err)
		return
	}
	employee.PasswordHash = hash
	s.logg.Info(logCtx, "auth.password_rehashed")
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if req.Password != req.PasswordConfirm {
		return nil, validationField("password_confirm", passwordMismatchMessage)
	}
	var department *enums.Department
	if req.Department != nil && strings.TrimSpace(*req.Department) != "" {
		parsed, err := enums.ParseDepartment(*req.Department)
		if err != nil {
			return nil, validationField("department", "invalid department")
		}
		department = &parsed
	}

	employee, err := s.provisioner.Provision(ctx, employees.ProvisionInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        enums.EmployeeRoleEmployee,
		Department:  department,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Welcome(ctx, employees.RecipientFor(employee))
	}
	return s.issueTokens(ctx, employee)
}

// Refresh accepts an expired access token so clients can rotate after expiry;
// the jti identifies the refresh session being rotated.
func (s *service) Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	employee, err := s.employees.FindByID(ctx, claims.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	if !employee.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is inactive")
	}

	accessID, refreshToken, err := s.sessions.Rotate(ctx, employee.ID, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	// role is re-read so a promotion takes effect on the next refresh
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		EmployeeID: employee.ID,
		Role:       employee.Role,
		JTI:        accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &TokenResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		Employee:     employees.FromModel(employee),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if err := s.sessions.Revoke(ctx, claims.EmployeeID, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	s.logg.Info(s.logg.WithEmployeeID(ctx, claims.EmployeeID.String()), "auth.logout")
	return nil
}

func (s *service) ChangePassword(ctx context.Context, actor authz.Actor, req ChangePasswordRequest) error {
	employee, err := s.employees.FindByID(ctx, actor.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	ok, err := security.VerifyPassword(req.OldPassword, employee.PasswordHash)
	if err != nil || !ok {
		return validationField("old_password", "old password is incorrect")
	}
	if req.NewPassword != req.NewPasswordConfirm {
		return validationField("new_password_confirm", passwordMismatchMessage)
	}
	hash, err := s.hashPassword(req.NewPassword, employee)
	if err != nil {
		return err
	}
	if err := s.employees.Update(ctx, employee.ID, map[string]any{"password_hash": hash}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}

	s.logg.Info(s.logg.WithEmployeeID(ctx, employee.ID.String()), "auth.password_changed")
	if s.notifier != nil {
		s.notifier.PasswordChanged(ctx, employees.RecipientFor(employee))
	}
	return nil
}

// RequestPasswordReset answers identically whether or not the email belongs
// to an active employee. Storage failures are logged, not surfaced.
func (s *service) RequestPasswordReset(ctx context.Context, req ResetRequest) (*MessageResponse, error) {
	resp := &MessageResponse{Message: resetRequestedMessage}

	employee, err := s.employees.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "auth.reset_lookup_failed", err)
		}
		return resp, nil
	}
	logCtx := s.logg.WithEmployeeID(ctx, employee.ID.String())
	if !employee.IsActive {
		s.logg.Info(logCtx, "auth.reset_inactive_account")
		return resp, nil
	}

	token, err := security.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		s.logg.Error(logCtx, "auth.reset_token_generate_failed", err)
		return resp, nil
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resets := s.resets.WithTx(tx)
		if err := resets.LockEmployee(ctx, employee.ID); err != nil {
			return err
		}
		if err := resets.InvalidateUnused(ctx, employee.ID); err != nil {
			return err
		}
		return resets.Create(ctx, &models.PasswordResetToken{
			EmployeeID: employee.ID,
			Token:      token,
			ExpiresAt:  expiresAt(now, s.resetTTL),
		})
	})
	if err != nil {
		s.logg.Error(logCtx, "auth.reset_token_store_failed", err)
		return resp, nil
	}

	s.logg.Info(logCtx, "auth.reset_requested")
	if s.notifier != nil {
		s.notifier.PasswordReset(ctx, employees.RecipientFor(employee), token)
	}
	return resp, nil
}

func (s *service) VerifyResetToken(ctx context.Context, token string) (*ResetVerification, error) {
	row, err := s.validResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &ResetVerification{Valid: true, Email: row.Employee.Email}, nil
}

func (s *service) ConfirmPasswordReset(ctx context.Context, req ResetConfirmRequest) (*MessageResponse, error) {
	row, err := s.validResetToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if req.NewPassword != req.NewPasswordConfirm {
		return nil, validationField("new_password_confirm", passwordMismatchMessage)
	}
	employee := row.Employee
	hash, err := s.hashPassword(req.NewPassword, employee)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resets := s.resets.WithTx(tx)
		locked, err := resets.FindByTokenForUpdate(ctx, row.Token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidResetToken()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock reset token")
		}
		if !locked.IsValid(s.now()) {
			return invalidResetToken()
		}
		if err := s.employees.WithTx(tx).Update(ctx, employee.ID, map[string]any{"password_hash": hash}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
		}
		if err := resets.MarkUsed(ctx, locked.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidResetToken()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithEmployeeID(ctx, employee.ID.String())
	s.logg.Info(logCtx, "auth.password_reset")
	if err := s.sessions.RevokeAll(ctx, employee.ID); err != nil {
		s.logg.Error(logCtx, "auth.revoke_sessions_failed", err)
	}
	if s.notifier != nil {
		s.notifier.PasswordChanged(ctx, employees.RecipientFor(employee))
	}
	return &MessageResponse{Message: "password has been reset"}, nil
}

func (s *service) validResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidResetToken()
	}
	row, err := s.resets.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidResetToken()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup reset token")
	}
	if !row.IsValid(s.now()) || row.Employee == nil || !row.Employee.IsActive {
		return nil, invalidResetToken()
	}
	return row, nil
}

func (s *service) issueTokens(ctx context.Context, employee *models.Employee) (*TokenResponse, error) {
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		EmployeeID: employee.ID,
		Role:       employee.Role,
		JTI:        accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refreshToken, err := s.sessions.Generate(ctx, employee.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}
	return &TokenResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		Employee:     employees.FromModel(employee),
	}, nil
}

func (s *service) hashPassword(password string, employee *models.Employee) (string, error) {
	local := employee.Email
	if i := strings.IndexByte(local, '@'); i > 0 {
		local = local[:i]
	}
	if problems := security.PasswordPolicyViolations(password, local, employee.FirstName, employee.LastName); len(problems) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "password does not meet requirements").
			WithDetails(map[string]any{"new_password": problems})
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func invalidResetToken() error {
	return pkgerrors.New(pkgerrors.CodeValidation, invalidResetTokenMessage)
}

func validationField(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}
