package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/ims-backend/pkg/db/types"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/angelmondragon/ims-backend/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	duplicateCodeMessage   = "device with this device code already exists"
	duplicateSerialMessage = "device with this serial number already exists"
)

var maxPurchasePrice = decimal.New(1, 8)

// Service manages the device catalog and the manual status overrides.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*DeviceDTO, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*DeviceDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[DeviceDTO], error)
	Available(ctx context.Context, params ListParams) (*pagination.Page[DeviceDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*DeviceDTO, error)
	MarkMaintenance(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DeviceDTO, error)
	MarkAvailable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DeviceDTO, error)
	MarkRetired(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DeviceDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	UploadImage(ctx context.Context, actor authz.Actor, id uuid.UUID, data []byte) (*DeviceDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build the device service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Storage storage.Store
	Logger  *logger.Logger
}

type service struct {
	repo  Repository
	tx    txRunner
	store storage.Store
	logg  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("devices repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:  params.Repo,
		tx:    params.Tx,
		store: params.Storage,
		logg:  params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*DeviceDTO, error) {
	if err := actor.Require(authz.CapDevicesManage); err != nil {
		return nil, err
	}

	deviceType, err := enums.ParseDeviceType(input.DeviceType)
	if err != nil {
		return nil, validationField("device_type", "invalid device type")
	}
	condition := enums.DeviceConditionGood
	if input.Condition != nil && strings.TrimSpace(*input.Condition) != "" {
		if condition, err = enums.ParseDeviceCondition(*input.Condition); err != nil {
			return nil, validationField("condition", "invalid condition")
		}
	}
	if err := checkPrice(input.PurchasePrice); err != nil {
		return nil, err
	}

	device := &models.Device{
		DeviceCode:     strings.TrimSpace(input.DeviceCode),
		Name:           strings.TrimSpace(input.Name),
		DeviceType:     deviceType,
		Brand:          strings.TrimSpace(input.Brand),
		Model:          strings.TrimSpace(input.Model),
		SerialNumber:   trimmedOrNil(input.SerialNumber),
		Status:         enums.DeviceStatusAvailable,
		Condition:      condition,
		Specifications: dbtypes.JSONMap(input.Specifications),
		Location:       strings.TrimSpace(input.Location),
		Notes:          input.Notes,
		ImageURL:       trimmedOrNil(input.ImageURL),
	}
	if input.PurchaseDate != nil {
		device.PurchaseDate = input.PurchaseDate.Ptr()
	}
	if input.WarrantyExpiry != nil {
		device.WarrantyExpiry = input.WarrantyExpiry.Ptr()
	}
	if input.PurchasePrice != nil {
		device.PurchasePrice = decimal.NewNullDecimal(*input.PurchasePrice)
	}
	if actor.EmployeeID != uuid.Nil {
		creator := actor.EmployeeID
		device.CreatedByID = &creator
	}

	if err := s.checkUnique(ctx, s.repo, device.DeviceCode, device.SerialNumber, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, device); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "device already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create device")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"device_id": device.ID.String(), "device_code": device.DeviceCode})
	s.logg.Info(logCtx, "device.created")
	return FromModel(device, nil), nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*DeviceDTO, error) {
	if err := actor.Require(authz.CapDevicesManage); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	code := current.DeviceCode
	if input.DeviceCode != nil {
		code = strings.TrimSpace(*input.DeviceCode)
		if code == "" {
			return nil, validationField("device_code", "device code cannot be blank")
		}
		updates["device_code"] = code
	}
	serial := current.SerialNumber
	if input.SerialNumber != nil {
		serial = trimmedOrNil(input.SerialNumber)
		updates["serial_number"] = serial
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationField("name", "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.DeviceType != nil {
		deviceType, err := enums.ParseDeviceType(*input.DeviceType)
		if err != nil {
			return nil, validationField("device_type", "invalid device type")
		}
		updates["device_type"] = deviceType
	}
	if input.Condition != nil {
		condition, err := enums.ParseDeviceCondition(*input.Condition)
		if err != nil {
			return nil, validationField("condition", "invalid condition")
		}
		updates["condition"] = condition
	}
	if input.Brand != nil {
		updates["brand"] = strings.TrimSpace(*input.Brand)
	}
	if input.Model != nil {
		updates["model"] = strings.TrimSpace(*input.Model)
	}
	if input.Specifications != nil {
		updates["specifications"] = dbtypes.JSONMap(*input.Specifications)
	}
	if input.PurchaseDate != nil {
		updates["purchase_date"] = input.PurchaseDate.Ptr()
	}
	if input.WarrantyExpiry != nil {
		updates["warranty_expiry"] = input.WarrantyExpiry.Ptr()
	}
	if input.PurchasePrice != nil {
		if err := checkPrice(input.PurchasePrice); err != nil {
			return nil, err
		}
		updates["purchase_price"] = decimal.NewNullDecimal(*input.PurchasePrice)
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.ImageURL != nil {
		updates["image_url"] = trimmedOrNil(input.ImageURL)
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.checkUnique(ctx, s.repo, code, serial, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "device already exists")
		}
		return nil, mapRepoError(err, "update device")
	}
	s.logg.Info(s.logg.WithDeviceID(ctx, id.String()), "device.updated")
	return s.Get(ctx, id)
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[DeviceDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listQuery{
		Status:     params.Status,
		DeviceType: params.DeviceType,
		Condition:  params.Condition,
		Search:     params.Search,
		Cursor:     cursor,
		Limit:      params.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list devices")
	}

	page := pagination.Build(rows, params.Limit, func(d models.Device) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, d := range page.Items {
		ids = append(ids, d.ID)
	}
	current, err := s.repo.CurrentAssignments(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current assignments")
	}
	out := pagination.Map(page, func(d models.Device) DeviceDTO {
		return *FromModel(&d, current[d.ID])
	})
	return &out, nil
}

func (s *service) Available(ctx context.Context, params ListParams) (*pagination.Page[DeviceDTO], error) {
	status := enums.DeviceStatusAvailable
	params.Status = &status
	return s.List(ctx, params)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*DeviceDTO, error) {
	device, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.CurrentAssignments(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current assignment")
	}
	return FromModel(device, current[id]), nil
}

func (s *service) MarkMaintenance(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DeviceDTO, error) {
	return s.setStatus(ctx, actor, id, enums.DeviceStatusMaintenance, nil)
}

func (s *service) MarkAvailable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DeviceDTO, error) {
	return s.setStatus(ctx, actor, id, enums.DeviceStatusAvailable, func(ctx context.Context, repo Repository) error {
		active, err := repo.CountAssignments(ctx, id, enums.AssignmentStatusActive)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active assignments")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot mark device as available: it has an active assignment")
		}
		return nil
	})
}

func (s *service) MarkRetired(ctx context.Context, actor authz.Actor, id uuid.UUID) (*DeviceDTO, error) {
	return s.setStatus(ctx, actor, id, enums.DeviceStatusRetired, func(ctx context.Context, repo Repository) error {
		open, err := repo.CountAssignments(ctx, id, openStatuses...)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open assignments")
		}
		if open > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot retire device: it has an open assignment")
		}
		return nil
	})
}

// setStatus locks the device row so the guard and the write see the same
// assignment state as the assignment engine.
func (s *service) setStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, status enums.DeviceStatus, guard func(context.Context, Repository) error) (*DeviceDTO, error) {
	if err := actor.Require(authz.CapDevicesManage); err != nil {
		return nil, err
	}
	var previous enums.DeviceStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		device, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapRepoError(err, "lock device")
		}
		previous = device.Status
		if guard != nil {
			if err := guard(ctx, repo); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, id, map[string]any{"status": status}); err != nil {
			return mapRepoError(err, "update device status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithDeviceID(ctx, id.String()), map[string]any{"from": string(previous), "to": string(status)})
	s.logg.Info(logCtx, "device.status_changed")
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := actor.Require(authz.CapDevicesManage); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByIDForUpdate(ctx, id); err != nil {
			return mapRepoError(err, "lock device")
		}
		count, err := repo.CountAssignments(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count assignments")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete device: it has assignment history; retire it instead")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapRepoError(err, "delete device")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithDeviceID(ctx, id.String()), "device.deleted")
	return nil
}

// UploadImage stores a catalog photo and points image_url at it. The previous
// object is left in place.
func (s *service) UploadImage(ctx context.Context, actor authz.Actor, id uuid.UUID, data []byte) (*DeviceDTO, error) {
	if err := actor.Require(authz.CapDevicesManage); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage is not configured")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	img, err := storage.DetectImage(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file must be an image").
			WithDetails(map[string]string{"image": "file must be an image"})
	}
	url, err := s.store.Put(ctx, storage.DeviceImageKey(id, img.Extension), img.ContentType, img.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store device image")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"image_url": url}); err != nil {
		return nil, mapRepoError(err, "update device image")
	}
	s.logg.Info(s.logg.WithDeviceID(ctx, id.String()), "device.image_uploaded")
	return s.Get(ctx, id)
}

func (s *service) checkUnique(ctx context.Context, repo Repository, code string, serial *string, exclude uuid.UUID) error {
	taken, err := repo.CodeExists(ctx, code, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check device code")
	}
	if taken {
		return conflictField("device_code", duplicateCodeMessage)
	}
	if serial == nil {
		return nil
	}
	taken, err = repo.SerialExists(ctx, *serial, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check serial number")
	}
	if taken {
		return conflictField("serial_number", duplicateSerialMessage)
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load device")
	}
	return device, nil
}

func checkPrice(price *decimal.Decimal) error {
	if price == nil {
		return nil
	}
	if price.IsNegative() {
		return validationField("purchase_price", "purchase price cannot be negative")
	}
	if !price.Round(2).Equal(*price) || !price.LessThan(maxPurchasePrice) {
		return validationField("purchase_price", "purchase price allows at most 10 digits with 2 decimal places")
	}
	return nil
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

func conflictField(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, message).WithDetails(map[string]string{field: message})
}

func mapRepoError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "device not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
