package dashboard

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEmployee(t *testing.T, client *db.Client, code string, active bool) *models.Employee {
	t.Helper()
	emp := &models.Employee{
		Email:        code + "@example.com",
		EmployeeCode: code,
		PasswordHash: "!",
		FirstName:    "Test",
		LastName:     code,
		Role:         enums.EmployeeRoleEmployee,
		IsActive:     true,
	}
	require.NoError(t, client.DB().Create(emp).Error)
	if !active {
		require.NoError(t, client.DB().Model(emp).Update("is_active", false).Error)
	}
	return emp
}

func seedDevice(t *testing.T, client *db.Client, code string, kind enums.DeviceType, status enums.DeviceStatus) *models.Device {
	t.Helper()
	device := &models.Device{DeviceCode: code, Name: code, DeviceType: kind, Brand: "Acme", Model: "X", Status: status}
	require.NoError(t, client.DB().Create(device).Error)
	return device
}

func TestStatsCountsEverything(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)

	alice := seedEmployee(t, client, "EMP001", true)
	bob := seedEmployee(t, client, "EMP002", true)
	seedEmployee(t, client, "EMP003", false)

	laptop := seedDevice(t, client, "LAP-1", enums.DeviceTypeLaptop, enums.DeviceStatusAssigned)
	monitor := seedDevice(t, client, "MON-1", enums.DeviceTypeMonitor, enums.DeviceStatusAssigned)
	seedDevice(t, client, "LAP-2", enums.DeviceTypeLaptop, enums.DeviceStatusAvailable)
	seedDevice(t, client, "LAP-3", enums.DeviceTypeLaptop, enums.DeviceStatusMaintenance)
	seedDevice(t, client, "PHN-1", enums.DeviceTypePhone, enums.DeviceStatusRetired)

	img := "/media/a.png"
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []*models.Assignment{
		{DeviceID: laptop.ID, EmployeeID: alice.ID, Status: enums.AssignmentStatusActive, AssignmentImage: &img},
		{DeviceID: monitor.ID, EmployeeID: alice.ID, Status: enums.AssignmentStatusPendingApproval},
		{DeviceID: monitor.ID, EmployeeID: bob.ID, Status: enums.AssignmentStatusReturned},
	} {
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, client.DB().Create(a).Error)
	}

	resolvedAt := base
	notes := "done"
	for i, status := range []enums.TicketStatus{
		enums.TicketStatusPending, enums.TicketStatusPending, enums.TicketStatusInProgress,
		enums.TicketStatusResolved, enums.TicketStatusRejected, enums.TicketStatusPending,
	} {
		ticket := &models.TicketRequest{
			TicketNumber:  fmt.Sprintf("TKT%03d", i+1),
			RequestedByID: bob.ID,
			TicketType:    enums.TicketTypeIssue,
			Priority:      enums.TicketPriorityLow,
			Status:        status,
			Subject:       "s",
			Description:   "d",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if status == enums.TicketStatusResolved {
			ticket.ResolvedAt = &resolvedAt
			ticket.ResolutionNotes = &notes
		}
		require.NoError(t, client.DB().Create(ticket).Error)
	}

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.TotalDevices)
	assert.Equal(t, int64(1), stats.AvailableDevices)
	assert.Equal(t, int64(2), stats.AssignedDevices)
	assert.Equal(t, int64(1), stats.MaintenanceDevices)
	assert.Equal(t, int64(1), stats.RetiredDevices)
	assert.Equal(t, map[string]int64{"available": 1, "assigned": 2, "maintenance": 1, "retired": 1}, stats.DevicesByStatus)
	assert.Equal(t, map[string]int64{
		"laptop": 3, "desktop": 0, "monitor": 1, "keyboard": 0, "mouse": 0,
		"headset": 0, "phone": 1, "tablet": 0, "other": 0,
	}, stats.DevicesByType)

	assert.Equal(t, int64(2), stats.TotalEmployees)
	assert.Equal(t, int64(1), stats.ActiveEmployees)

	assert.Equal(t, int64(3), stats.TotalAssignments)
	assert.Equal(t, int64(1), stats.ActiveAssignments)
	assert.Equal(t, int64(0), stats.AssignmentsByStatus["lost"])
	assert.Len(t, stats.AssignmentsByStatus, len(enums.AssignmentStatuses()))

	assert.Equal(t, int64(6), stats.TotalTickets)
	assert.Equal(t, int64(3), stats.PendingTickets)
	assert.Equal(t, int64(1), stats.InProgressTickets)
	assert.Equal(t, int64(1), stats.ResolvedTickets)
	assert.Equal(t, int64(1), stats.TicketsByStatus["rejected"])

	require.Len(t, stats.RecentAssignments, 3)
	assert.Equal(t, enums.AssignmentStatusReturned, stats.RecentAssignments[0].Status)
	require.NotNil(t, stats.RecentAssignments[0].Device)
	require.Len(t, stats.RecentTickets, 5)
	assert.Equal(t, "TKT006", stats.RecentTickets[0].TicketNumber)
}

func TestStatsOnEmptyDatabase(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDevices)
	assert.Len(t, stats.DevicesByType, len(enums.DeviceTypes()))
	for _, n := range stats.DevicesByType {
		assert.Zero(t, n)
	}
	assert.Equal(t, map[string]int64{"available": 0, "assigned": 0, "maintenance": 0, "retired": 0}, stats.DevicesByStatus)
	assert.Len(t, stats.TicketsByStatus, len(enums.TicketStatuses()))
	assert.NotNil(t, stats.RecentAssignments)
	assert.NotNil(t, stats.RecentTickets)
}
