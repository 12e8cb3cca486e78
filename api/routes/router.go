package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/ims-backend/api/controllers"
	"github.com/angelmondragon/ims-backend/api/middleware"
	"github.com/angelmondragon/ims-backend/internal/assignments"
	"github.com/angelmondragon/ims-backend/internal/auth"
	"github.com/angelmondragon/ims-backend/internal/dashboard"
	"github.com/angelmondragon/ims-backend/internal/devices"
	"github.com/angelmondragon/ims-backend/internal/employees"
	"github.com/angelmondragon/ims-backend/internal/tickets"
	"github.com/angelmondragon/ims-backend/pkg/auth/session"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/metrics"
	"github.com/angelmondragon/ims-backend/pkg/redis"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Auth        auth.Service
	Employees   employees.Service
	Devices     devices.Service
	Assignments assignments.Service
	Tickets     tickets.Service
	Dashboard   dashboard.Service
}

// Infra carries the cross-cutting dependencies the router needs.
// MetricsHandler is mounted at /metrics and Media under the storage public
// base URL, each only when set.
type Infra struct {
	Sessions       session.AccessSessionChecker
	Redis          *redis.Client
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Media          http.Handler
	ReadyProbe     map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services, infra Infra) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.StripSlashes,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(infra.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	// A nil *redis.Client must not reach the middleware as a non-nil interface.
	var rateStore middleware.RateLimiterStore
	var idempotencyStore redis.IdempotencyStore
	if infra.Redis != nil {
		rateStore = infra.Redis
		idempotencyStore = infra.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password_reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	authenticate := middleware.Auth(cfg.JWT, infra.Sessions, logg)
	idempotent := middleware.Idempotency(idempotencyStore, logg)
	capability := func(c authz.Capability) func(http.Handler) http.Handler {
		return middleware.RequireCapability(c, logg)
	}
	maxUpload := cfg.Storage.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.ReadyProbe))
	})

	if infra.MetricsHandler != nil {
		r.Handle("/metrics", infra.MetricsHandler)
	}

	if infra.Media != nil {
		if base := strings.TrimRight(cfg.Storage.PublicBaseURL, "/"); strings.HasPrefix(base, "/") {
			r.Handle(base+"/*", http.StripPrefix(base+"/", infra.Media))
		}
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg), idempotent).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))

		r.Route("/password/reset", func(r chi.Router) {
			r.Use(middleware.AuthRateLimit(resetPolicy, rateStore, logg))
			r.Post("/", controllers.AuthRequestPasswordReset(svc.Auth, logg))
			r.Get("/verify", controllers.AuthVerifyPasswordReset(svc.Auth, logg))
			r.Post("/confirm", controllers.AuthConfirmPasswordReset(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", controllers.AuthMe(svc.Employees, logg))
			r.Patch("/me", controllers.AuthUpdateMe(svc.Employees, logg))
			r.Post("/password/change", controllers.AuthChangePassword(svc.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(idempotent)

		r.Route("/employees", func(r chi.Router) {
			r.Use(capability(authz.CapEmployeesManage))
			r.Post("/", controllers.EmployeesCreate(svc.Employees, logg))
			r.Get("/", controllers.EmployeesList(svc.Employees, logg))
			r.Get("/{employeeId}", controllers.EmployeesGet(svc.Employees, logg))
			r.Patch("/{employeeId}", controllers.EmployeesUpdate(svc.Employees, logg))
			r.Delete("/{employeeId}", controllers.EmployeesDeactivate(svc.Employees, logg))
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", controllers.DevicesList(svc.Devices, logg))
			r.Get("/available", controllers.DevicesAvailable(svc.Devices, logg))
			r.Get("/{deviceId}", controllers.DevicesGet(svc.Devices, logg))

			r.Group(func(r chi.Router) {
				r.Use(capability(authz.CapDevicesManage))
				r.Post("/", controllers.DevicesCreate(svc.Devices, logg))
				r.Patch("/{deviceId}", controllers.DevicesUpdate(svc.Devices, logg))
				r.Delete("/{deviceId}", controllers.DevicesDelete(svc.Devices, logg))
				r.Post("/{deviceId}/mark_maintenance", controllers.DevicesMarkMaintenance(svc.Devices, logg))
				r.Post("/{deviceId}/mark_available", controllers.DevicesMarkAvailable(svc.Devices, logg))
				r.Post("/{deviceId}/mark_retired", controllers.DevicesMarkRetired(svc.Devices, logg))
				r.Post("/{deviceId}/image", controllers.DevicesUploadImage(svc.Devices, maxUpload, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", controllers.AssignmentsCreate(svc.Assignments, logg))
			r.Get("/", controllers.AssignmentsList(svc.Assignments, logg))
			r.Get("/mine", controllers.AssignmentsMine(svc.Assignments, logg))
			r.Get("/{assignmentId}", controllers.AssignmentsGet(svc.Assignments, logg))
			r.Post("/{assignmentId}/request_return", controllers.AssignmentsRequestReturn(svc.Assignments, logg))
			r.Post("/{assignmentId}/return_device", controllers.AssignmentsReturnDevice(svc.Assignments, logg))

			r.Group(func(r chi.Router) {
				r.Use(capability(authz.CapAssignmentsApprove))
				r.Patch("/{assignmentId}", controllers.AssignmentsUpdate(svc.Assignments, logg))
				r.Post("/{assignmentId}/approve_assignment", controllers.AssignmentsApprove(svc.Assignments, maxUpload, logg))
				r.Post("/{assignmentId}/approve_return", controllers.AssignmentsApproveReturn(svc.Assignments, maxUpload, logg))
				r.Post("/{assignmentId}/report_incident", controllers.AssignmentsReportIncident(svc.Assignments, logg))
			})
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", controllers.TicketsCreate(svc.Tickets, logg))
			r.Get("/", controllers.TicketsList(svc.Tickets, logg))
			r.Get("/mine", controllers.TicketsMine(svc.Tickets, logg))
			r.Get("/{ticketId}", controllers.TicketsGet(svc.Tickets, logg))
			r.Patch("/{ticketId}", controllers.TicketsUpdate(svc.Tickets, logg))
			r.Post("/{ticketId}/resolve", controllers.TicketsResolve(svc.Tickets, logg))
			r.Post("/{ticketId}/close", controllers.TicketsClose(svc.Tickets, logg))
			r.With(capability(authz.CapTicketsManage)).Post("/{ticketId}/assign", controllers.TicketsAssign(svc.Tickets, logg))
		})

		r.Get("/dashboard/stats", controllers.DashboardStats(svc.Dashboard, logg))
	})

	return r
}
