package dashboard

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ims-backend/internal/assignments"
	"github.com/angelmondragon/ims-backend/internal/tickets"
	"github.com/angelmondragon/ims-backend/pkg/db/models"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const recentLimit = 5

// Stats is a point-in-time rollup. It is computed on every request.
type Stats struct {
	TotalDevices       int64            `json:"total_devices"`
	AvailableDevices   int64            `json:"available_devices"`
	AssignedDevices    int64            `json:"assigned_devices"`
	MaintenanceDevices int64            `json:"maintenance_devices"`
	RetiredDevices     int64            `json:"retired_devices"`
	DevicesByStatus    map[string]int64 `json:"devices_by_status"`
	DevicesByType      map[string]int64 `json:"device_by_type"`

	TotalEmployees  int64 `json:"total_employees"`
	ActiveEmployees int64 `json:"active_employees"`

	TotalAssignments    int64            `json:"total_assignments"`
	ActiveAssignments   int64            `json:"active_assignments"`
	AssignmentsByStatus map[string]int64 `json:"assignments_by_status"`

	TotalTickets      int64            `json:"total_tickets"`
	PendingTickets    int64            `json:"pending_tickets"`
	InProgressTickets int64            `json:"in_progress_tickets"`
	ResolvedTickets   int64            `json:"resolved_tickets"`
	TicketsByStatus   map[string]int64 `json:"tickets_by_status"`

	RecentAssignments []assignments.AssignmentDTO `json:"recent_assignments"`
	RecentTickets     []tickets.TicketDTO         `json:"recent_tickets"`
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	var (
		devicesByStatus     map[string]int64
		devicesByType       map[string]int64
		assignmentsByStatus map[string]int64
		ticketsByStatus     map[string]int64
		activeEmployees     int64
		holdingEmployees    int64
		recentAssignments   []models.Assignment
		recentTickets       []models.TicketRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		devicesByStatus, err = s.repo.CountBy(gctx, &models.Device{}, "status")
		return err
	})
	g.Go(func() (err error) {
		devicesByType, err = s.repo.CountBy(gctx, &models.Device{}, "device_type")
		return err
	})
	g.Go(func() (err error) {
		assignmentsByStatus, err = s.repo.CountBy(gctx, &models.Assignment{}, "status")
		return err
	})
	g.Go(func() (err error) {
		ticketsByStatus, err = s.repo.CountBy(gctx, &models.TicketRequest{}, "status")
		return err
	})
	g.Go(func() (err error) {
		activeEmployees, err = s.repo.CountActiveEmployees(gctx)
		return err
	})
	g.Go(func() (err error) {
		holdingEmployees, err = s.repo.CountEmployeesHoldingDevices(gctx)
		return err
	})
	g.Go(func() (err error) {
		recentAssignments, err = s.repo.RecentAssignments(gctx, recentLimit)
		return err
	})
	g.Go(func() (err error) {
		recentTickets, err = s.repo.RecentTickets(gctx, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logg.Error(ctx, "dashboard.stats_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute dashboard stats")
	}

	stats := &Stats{
		TotalDevices:       sum(devicesByStatus),
		AvailableDevices:   devicesByStatus[string(enums.DeviceStatusAvailable)],
		AssignedDevices:    devicesByStatus[string(enums.DeviceStatusAssigned)],
		MaintenanceDevices: devicesByStatus[string(enums.DeviceStatusMaintenance)],
		RetiredDevices:     devicesByStatus[string(enums.DeviceStatusRetired)],
		DevicesByStatus:    withZeros(devicesByStatus, enums.DeviceStatuses()),
		DevicesByType:      withZeros(devicesByType, enums.DeviceTypes()),

		TotalEmployees:  activeEmployees,
		ActiveEmployees: holdingEmployees,

		TotalAssignments:    sum(assignmentsByStatus),
		ActiveAssignments:   assignmentsByStatus[string(enums.AssignmentStatusActive)],
		AssignmentsByStatus: withZeros(assignmentsByStatus, enums.AssignmentStatuses()),

		TotalTickets:      sum(ticketsByStatus),
		PendingTickets:    ticketsByStatus[string(enums.TicketStatusPending)],
		InProgressTickets: ticketsByStatus[string(enums.TicketStatusInProgress)],
		ResolvedTickets:   ticketsByStatus[string(enums.TicketStatusResolved)],
		TicketsByStatus:   withZeros(ticketsByStatus, enums.TicketStatuses()),

		RecentAssignments: make([]assignments.AssignmentDTO, 0, len(recentAssignments)),
		RecentTickets:     make([]tickets.TicketDTO, 0, len(recentTickets)),
	}
	for i := range recentAssignments {
		stats.RecentAssignments = append(stats.RecentAssignments, *assignments.FromModel(&recentAssignments[i]))
	}
	for i := range recentTickets {
		stats.RecentTickets = append(stats.RecentTickets, *tickets.FromModel(&recentTickets[i]))
	}
	return stats, nil
}

func sum(counts map[string]int64) int64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	return total
}

// withZeros fills in every known key so clients get a stable shape.
func withZeros[T ~string](counts map[string]int64, keys []T) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		out[string(k)] = counts[string(k)]
	}
	return out
}
