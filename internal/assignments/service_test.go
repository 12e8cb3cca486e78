package assignments

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/metrics"
	"github.com/angelmondragon/ims-backend/pkg/pagination"
	"github.com/angelmondragon/ims-backend/pkg/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fixture struct {
	client   *db.Client
	svc      Service
	store    *storage.LocalStore
	registry *prometheus.Registry
	admin    authz.Actor
	manager  authz.Actor
	staff    authz.Actor
	other    authz.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	registry := prometheus.NewRegistry()

	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(client.DB()),
		Tx:      client,
		Storage: store,
		Metrics: metrics.NewAssignmentMetrics(registry),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	f := &fixture{client: client, svc: svc, store: store, registry: registry}
	f.admin = f.seedEmployee(t, "EMP001", enums.EmployeeRoleAdmin)
	f.manager = f.seedEmployee(t, "EMP002", enums.EmployeeRoleManager)
	f.staff = f.seedEmployee(t, "EMP003", enums.EmployeeRoleEmployee)
	f.other = f.seedEmployee(t, "EMP004", enums.EmployeeRoleEmployee)
	return f
}

func (f *fixture) seedEmployee(t *testing.T, code string, role enums.EmployeeRole) authz.Actor {
	t.Helper()
	emp := &models.Employee{
		Email:        code + "@example.com",
		EmployeeCode: code,
		PasswordHash: "!",
		FirstName:    "Test",
		LastName:     code,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, f.client.DB().Create(emp).Error)
	return authz.Actor{EmployeeID: emp.ID, Role: role}
}

func (f *fixture) seedDevice(t *testing.T, code string, status enums.DeviceStatus) *models.Device {
	t.Helper()
	device := &models.Device{
		DeviceCode: code,
		Name:       "Laptop " + code,
		DeviceType: enums.DeviceTypeLaptop,
		Brand:      "Dell",
		Model:      "XPS",
		Status:     status,
		Condition:  enums.DeviceConditionGood,
	}
	require.NoError(t, f.client.DB().Create(device).Error)
	return device
}

func (f *fixture) deviceStatus(t *testing.T, id uuid.UUID) enums.DeviceStatus {
	t.Helper()
	var device models.Device
	require.NoError(t, f.client.DB().Where("id = ?", id).First(&device).Error)
	return device.Status
}

func (f *fixture) assignmentRow(t *testing.T, id uuid.UUID) models.Assignment {
	t.Helper()
	var a models.Assignment
	require.NoError(t, f.client.DB().Where("id = ?", id).First(&a).Error)
	return a
}

func (f *fixture) request(t *testing.T, actor authz.Actor, deviceID uuid.UUID) *AssignmentDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), actor, CreateInput{DeviceID: deviceID})
	require.NoError(t, err)
	return dto
}

func (f *fixture) activate(t *testing.T, deviceID uuid.UUID, employee authz.Actor) *AssignmentDTO {
	t.Helper()
	dto := f.request(t, employee, deviceID)
	approved, err := f.svc.ApproveAssignment(context.Background(), f.admin, dto.ID, ApproveAssignmentInput{Image: pngHeader, Undertaking: true})
	require.NoError(t, err)
	return approved
}

func (f *fixture) evidenceFiles(t *testing.T, assignmentID uuid.UUID, kind string) int {
	t.Helper()
	entries, err := os.ReadDir(f.store.Dir() + "/assignments/" + assignmentID.String() + "/" + kind)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestFullLifecycleWithEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := f.seedDevice(t, "LAP-001", enums.DeviceStatusAvailable)

	created, err := f.svc.Create(ctx, f.staff, CreateInput{DeviceID: device.ID, AssignmentNotes: "onboarding"})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusPendingApproval, created.Status)
	assert.Equal(t, f.staff.EmployeeID, created.EmployeeID)
	require.NotNil(t, created.AssignedBy)
	assert.Equal(t, f.staff.EmployeeID, created.AssignedBy.ID)
	assert.Equal(t, enums.DeviceStatusAssigned, f.deviceStatus(t, device.ID))

	approved, err := f.svc.ApproveAssignment(ctx, f.manager, created.ID, ApproveAssignmentInput{Image: pngHeader, Undertaking: true})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusActive, approved.Status)
	require.NotNil(t, approved.AssignmentImage)
	assert.Contains(t, *approved.AssignmentImage, "/media/assignments/"+created.ID.String()+"/approval/")
	assert.True(t, approved.AssignmentUndertaking)
	require.NotNil(t, approved.AssignmentApprovedBy)
	assert.Equal(t, f.manager.EmployeeID, approved.AssignmentApprovedBy.ID)
	assert.NotNil(t, approved.AssignmentApprovedDate)
	assert.Equal(t, enums.DeviceStatusAssigned, f.deviceStatus(t, device.ID))

	pending, err := f.svc.RequestReturn(ctx, f.staff, created.ID, ReturnRequestInput{ReturnNotes: "leaving"})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusPendingReturn, pending.Status)
	assert.Equal(t, "leaving", pending.ReturnNotes)
	// No other active assignment holds the device once the return is requested.
	assert.Equal(t, enums.DeviceStatusAvailable, f.deviceStatus(t, device.ID))

	returned, err := f.svc.ApproveReturn(ctx, f.admin, created.ID, ApproveReturnInput{Image: pngHeader, Condition: "fair", DeviceBroken: true})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnImage)
	require.NotNil(t, returned.DeviceConditionOnReturn)
	assert.Equal(t, enums.DeviceConditionFair, *returned.DeviceConditionOnReturn)
	assert.True(t, returned.DeviceBroken)
	assert.NotNil(t, returned.ReturnDate)
	assert.NotNil(t, returned.ReturnApprovedDate)
	assert.Equal(t, enums.DeviceStatusAvailable, f.deviceStatus(t, device.ID))

	assert.Equal(t, 1, f.evidenceFiles(t, created.ID, "approval"))
	assert.Equal(t, 1, f.evidenceFiles(t, created.ID, "return"))

	series, err := testutil.GatherAndCount(f.registry, "ims_assignment_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 4, series)
}

func TestConcurrentApprovalsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	device := f.seedDevice(t, "LAP-002", enums.DeviceStatusAvailable)
	pending := f.request(t, f.staff, device.ID)

	const callers = 4
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApproveAssignment(context.Background(), f.admin, pending.ID, ApproveAssignmentInput{Image: pngHeader})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var active int64
	require.NoError(t, f.client.DB().Model(&models.Assignment{}).
		Where("device_id = ? AND status = ?", device.ID, enums.AssignmentStatusActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
	assert.Equal(t, 1, f.evidenceFiles(t, pending.ID, "approval"))
}

func TestApprovalRequiresEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := f.seedDevice(t, "LAP-003", enums.DeviceStatusAvailable)
	pending := f.request(t, f.staff, device.ID)

	_, err := f.svc.ApproveAssignment(ctx, f.admin, pending.ID, ApproveAssignmentInput{})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, "assignment image is required for approval", pkgerrors.As(err).Message())

	_, err = f.svc.ApproveAssignment(ctx, f.admin, pending.ID, ApproveAssignmentInput{Image: []byte("plain text, not an image")})
	requireCode(t, err, pkgerrors.CodeValidation)

	row := f.assignmentRow(t, pending.ID)
	assert.Equal(t, enums.AssignmentStatusPendingApproval, row.Status)
	assert.Nil(t, row.AssignmentImage)

	active := f.activate(t, f.seedDevice(t, "LAP-004", enums.DeviceStatusAvailable).ID, f.staff)
	_, err = f.svc.RequestReturn(ctx, f.staff, active.ID, ReturnRequestInput{})
	require.NoError(t, err)
	_, err = f.svc.ApproveReturn(ctx, f.admin, active.ID, ApproveReturnInput{})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, "return image is required for approval", pkgerrors.As(err).Message())
	assert.Equal(t, enums.AssignmentStatusPendingReturn, f.assignmentRow(t, active.ID).Status)
}

func TestPreconditionsLeaveRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.activate(t, f.seedDevice(t, "LAP-005", enums.DeviceStatusAvailable).ID, f.staff)
	before := f.assignmentRow(t, active.ID)

	_, err := f.svc.ApproveAssignment(ctx, f.admin, active.ID, ApproveAssignmentInput{Image: pngHeader})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, "only pending assignments can be approved", pkgerrors.As(err).Message())

	_, err = f.svc.ApproveReturn(ctx, f.admin, active.ID, ApproveReturnInput{Image: pngHeader})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, "only pending returns can be approved", pkgerrors.As(err).Message())

	after := f.assignmentRow(t, active.ID)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.AssignmentImage, after.AssignmentImage)
	assert.Nil(t, after.ReturnImage)
	assert.Equal(t, 1, f.evidenceFiles(t, active.ID, "approval"))
	assert.Equal(t, 0, f.evidenceFiles(t, active.ID, "return"))

	pending := f.request(t, f.staff, f.seedDevice(t, "LAP-006", enums.DeviceStatusAvailable).ID)
	_, err = f.svc.RequestReturn(ctx, f.staff, pending.ID, ReturnRequestInput{})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, "only active assignments can request return", pkgerrors.As(err).Message())
	_, err = f.svc.ReturnDevice(ctx, f.admin, pending.ID, ReturnRequestInput{})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestApprovalBlockedByOtherActiveAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := f.seedDevice(t, "LAP-007", enums.DeviceStatusAvailable)
	first := f.request(t, f.staff, device.ID)
	second := f.request(t, f.other, device.ID)

	_, err := f.svc.ApproveAssignment(ctx, f.admin, first.ID, ApproveAssignmentInput{Image: pngHeader})
	require.NoError(t, err)

	_, err = f.svc.ApproveAssignment(ctx, f.admin, second.ID, ApproveAssignmentInput{Image: pngHeader})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, enums.AssignmentStatusPendingApproval, f.assignmentRow(t, second.ID).Status)
	assert.Equal(t, 0, f.evidenceFiles(t, second.ID, "approval"))
}

func TestLegacyReturnAndMarkAvailableFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := f.seedDevice(t, "LAP-008", enums.DeviceStatusAvailable)
	active := f.activate(t, device.ID, f.staff)

	returned, err := f.svc.ReturnDevice(ctx, f.staff, active.ID, ReturnRequestInput{ReturnNotes: "done"})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnDate)
	assert.Nil(t, returned.ReturnImage)
	assert.Equal(t, enums.DeviceStatusAvailable, f.deviceStatus(t, device.ID))

	_, err = f.svc.ReturnDevice(ctx, f.staff, active.ID, ReturnRequestInput{})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, "only active or pending return assignments can be returned", pkgerrors.As(err).Message())
}

func TestReportIncidentMovesDeviceToMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := f.seedDevice(t, "LAP-009", enums.DeviceStatusAvailable)
	active := f.activate(t, device.ID, f.staff)

	_, err := f.svc.ReportIncident(ctx, f.staff, active.ID, IncidentInput{Outcome: "lost"})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.ReportIncident(ctx, f.admin, active.ID, IncidentInput{Outcome: "returned"})
	requireCode(t, err, pkgerrors.CodeValidation)

	damaged, err := f.svc.ReportIncident(ctx, f.admin, active.ID, IncidentInput{Outcome: "damaged", Notes: "screen cracked"})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusDamaged, damaged.Status)
	assert.True(t, damaged.DeviceBroken)
	assert.Equal(t, enums.DeviceStatusMaintenance, f.deviceStatus(t, device.ID))

	_, err = f.svc.RequestReturn(ctx, f.staff, active.ID, ReturnRequestInput{})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("on behalf requires capability", func(t *testing.T) {
		device := f.seedDevice(t, "LAP-010", enums.DeviceStatusAvailable)
		other := f.other.EmployeeID
		_, err := f.svc.Create(ctx, f.staff, CreateInput{DeviceID: device.ID, EmployeeID: &other})
		requireCode(t, err, pkgerrors.CodeForbidden)

		dto, err := f.svc.Create(ctx, f.manager, CreateInput{DeviceID: device.ID, EmployeeID: &other})
		require.NoError(t, err)
		assert.Equal(t, other, dto.EmployeeID)
		assert.Equal(t, f.manager.EmployeeID, dto.AssignedBy.ID)
	})

	t.Run("direct active needs approver and a free device", func(t *testing.T) {
		device := f.seedDevice(t, "LAP-011", enums.DeviceStatusAvailable)
		_, err := f.svc.Create(ctx, f.staff, CreateInput{DeviceID: device.ID, Status: "active"})
		requireCode(t, err, pkgerrors.CodeForbidden)

		staff := f.staff.EmployeeID
		dto, err := f.svc.Create(ctx, f.admin, CreateInput{DeviceID: device.ID, EmployeeID: &staff, Status: "active"})
		require.NoError(t, err)
		assert.Equal(t, enums.AssignmentStatusActive, dto.Status)
		assert.Nil(t, dto.AssignmentApprovedBy)
		assert.Equal(t, enums.DeviceStatusAssigned, f.deviceStatus(t, device.ID))

		other := f.other.EmployeeID
		_, err = f.svc.Create(ctx, f.admin, CreateInput{DeviceID: device.ID, EmployeeID: &other, Status: "active"})
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("device state", func(t *testing.T) {
		retired := f.seedDevice(t, "LAP-012", enums.DeviceStatusRetired)
		_, err := f.svc.Create(ctx, f.staff, CreateInput{DeviceID: retired.ID})
		requireCode(t, err, pkgerrors.CodeStateConflict)

		maintenance := f.seedDevice(t, "LAP-013", enums.DeviceStatusMaintenance)
		staff := f.staff.EmployeeID
		_, err = f.svc.Create(ctx, f.admin, CreateInput{DeviceID: maintenance.ID, EmployeeID: &staff, Status: "active"})
		requireCode(t, err, pkgerrors.CodeStateConflict)

		_, err = f.svc.Create(ctx, f.staff, CreateInput{DeviceID: uuid.New()})
		requireCode(t, err, pkgerrors.CodeNotFound)

		_, err = f.svc.Create(ctx, f.staff, CreateInput{DeviceID: maintenance.ID, Status: "returned"})
		requireCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("default request checks availability", func(t *testing.T) {
		maintenance := f.seedDevice(t, "LAP-017", enums.DeviceStatusMaintenance)
		_, err := f.svc.Create(ctx, f.staff, CreateInput{DeviceID: maintenance.ID})
		requireCode(t, err, pkgerrors.CodeStateConflict)
		assert.Equal(t, "cannot assign device: device is under maintenance", pkgerrors.As(err).Message())
		assert.Equal(t, enums.DeviceStatusMaintenance, f.deviceStatus(t, maintenance.ID))

		held := f.seedDevice(t, "LAP-018", enums.DeviceStatusAvailable)
		f.activate(t, held.ID, f.other)
		_, err = f.svc.Create(ctx, f.staff, CreateInput{DeviceID: held.ID})
		requireCode(t, err, pkgerrors.CodeStateConflict)
		assert.Equal(t, msgDeviceHasActive, pkgerrors.As(err).Message())

		var count int64
		require.NoError(t, f.client.DB().Model(&models.Assignment{}).Where("device_id = ?", held.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("explicit pending request may queue", func(t *testing.T) {
		held := f.seedDevice(t, "LAP-019", enums.DeviceStatusAvailable)
		f.activate(t, held.ID, f.other)
		dto, err := f.svc.Create(ctx, f.staff, CreateInput{DeviceID: held.ID, Status: "pending_approval"})
		require.NoError(t, err)
		assert.Equal(t, enums.AssignmentStatusPendingApproval, dto.Status)
		assert.Equal(t, enums.DeviceStatusAssigned, f.deviceStatus(t, held.ID))
	})
}

func TestConcurrentActiveCreationsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	device := f.seedDevice(t, "LAP-020", enums.DeviceStatusAvailable)
	assignees := []authz.Actor{f.admin, f.manager, f.staff, f.other}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, assignee := range assignees {
		wg.Add(1)
		go func(employeeID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.admin, CreateInput{DeviceID: device.ID, EmployeeID: &employeeID, Status: "active"})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(assignee.EmployeeID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var active int64
	require.NoError(t, f.client.DB().Model(&models.Assignment{}).
		Where("device_id = ? AND status = ?", device.ID, enums.AssignmentStatusActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
	assert.Equal(t, enums.DeviceStatusAssigned, f.deviceStatus(t, device.ID))
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.activate(t, f.seedDevice(t, "LAP-014", enums.DeviceStatusAvailable).ID, f.staff)
	theirs := f.activate(t, f.seedDevice(t, "LAP-015", enums.DeviceStatusAvailable).ID, f.other)

	_, err := f.svc.Get(ctx, f.staff, theirs.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	got, err := f.svc.Get(ctx, f.staff, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)
	_, err = f.svc.Get(ctx, f.manager, theirs.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestReturn(ctx, f.staff, theirs.ID, ReturnRequestInput{})
	requireCode(t, err, pkgerrors.CodeNotFound)

	page, err := f.svc.List(ctx, f.staff, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, f.admin, ListParams{Params: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)
	next, err := f.svc.List(ctx, f.admin, ListParams{Params: pagination.Params{Limit: 1, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.NotEqual(t, page.Items[0].ID, next.Items[0].ID)

	page, err = f.svc.List(ctx, f.admin, ListParams{Search: "LAP-015"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, theirs.ID, page.Items[0].ID)
	require.NotNil(t, page.Items[0].Device)

	own, err := f.svc.Mine(ctx, f.other)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, theirs.ID, own[0].ID)
}

func TestUpdateNotesKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := f.seedDevice(t, "LAP-016", enums.DeviceStatusAvailable)
	active := f.activate(t, device.ID, f.staff)
	notes := "swap charger"

	_, err := f.svc.Update(ctx, f.staff, active.ID, UpdateInput{AssignmentNotes: &notes})
	requireCode(t, err, pkgerrors.CodeForbidden)

	updated, err := f.svc.Update(ctx, f.admin, active.ID, UpdateInput{AssignmentNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.AssignmentNotes)
	assert.Equal(t, enums.AssignmentStatusActive, updated.Status)
	assert.Equal(t, enums.DeviceStatusAssigned, f.deviceStatus(t, device.ID))
}
