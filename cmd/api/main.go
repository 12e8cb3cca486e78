package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/ims-backend/api/controllers"
	"github.com/angelmondragon/ims-backend/api/routes"
	"github.com/angelmondragon/ims-backend/internal/assignments"
	"github.com/angelmondragon/ims-backend/internal/auth"
	"github.com/angelmondragon/ims-backend/internal/dashboard"
	"github.com/angelmondragon/ims-backend/internal/devices"
	"github.com/angelmondragon/ims-backend/internal/employees"
	"github.com/angelmondragon/ims-backend/internal/notifications"
	"github.com/angelmondragon/ims-backend/internal/sequences"
	"github.com/angelmondragon/ims-backend/internal/tickets"
	"github.com/angelmondragon/ims-backend/pkg/auth/session"
	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/db"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/mailer"
	"github.com/angelmondragon/ims-backend/pkg/metrics"
	"github.com/angelmondragon/ims-backend/pkg/migrate"
	"github.com/angelmondragon/ims-backend/pkg/redis"
	"github.com/angelmondragon/ims-backend/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	store, err := storage.New(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create object storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher := notifications.NewDispatcher(
		mailer.NewClient(cfg.Mailer, logg),
		logg,
		metrics.NewEmailMetrics(registry),
		notifications.DispatcherConfig{
			FrontendURL: cfg.App.FrontendURL,
			ResetTTL:    cfg.PasswordReset.TTL,
		},
	)

	services, err := buildServices(cfg, logg, dbClient, sessionManager, store, dispatcher, registry)
	if err != nil {
		logg.Error(ctx, "failed to build services", err)
		os.Exit(1)
	}

	infra := routes.Infra{
		Sessions:       sessionManager,
		Redis:          redisClient,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ReadyProbe: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"storage":  store,
		},
	}
	if local, ok := store.(*storage.LocalStore); ok {
		infra.Media = http.FileServer(http.Dir(local.Dir()))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, services, infra),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, server.Shutdown(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, dispatcher.Wait(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, redisClient.Close())
	shutdownErr = multierr.Append(shutdownErr, dbClient.Close())
	if shutdownErr != nil {
		logg.Error(logCtx, "unclean shutdown", shutdownErr)
		exitCode = 1
	}
	logg.Info(logCtx, "api server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessions *session.Manager,
	store storage.Store,
	dispatcher *notifications.Dispatcher,
	registry prometheus.Registerer,
) (routes.Services, error) {
	conn := dbClient.DB()
	sequenceRepo := sequences.NewRepository(conn)
	employeeRepo := employees.NewRepository(conn)

	employeeService, err := employees.NewService(employees.ServiceParams{
		Repo:           employeeRepo,
		Tx:             dbClient,
		Sequences:      sequences.NewRepository,
		Sessions:       sessions,
		Notifier:       dispatcher,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Employees:      employeeRepo,
		Provisioner:    employeeService,
		ResetTokens:    auth.NewResetTokenRepository(conn),
		Sessions:       sessions,
		Notifier:       dispatcher,
		Tx:             dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetTTL:       cfg.PasswordReset.TTL,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	deviceService, err := devices.NewService(devices.ServiceParams{
		Repo:    devices.NewRepository(conn),
		Tx:      dbClient,
		Storage: store,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	assignmentService, err := assignments.NewService(assignments.ServiceParams{
		Repo:    assignments.NewRepository(conn),
		Tx:      dbClient,
		Storage: store,
		Metrics: metrics.NewAssignmentMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	ticketService, err := tickets.NewService(tickets.ServiceParams{
		Repo:      tickets.NewRepository(conn),
		Sequences: sequenceRepo,
		Tx:        dbClient,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn), logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authService,
		Employees:   employeeService,
		Devices:     deviceService,
		Assignments: assignmentService,
		Tickets:     ticketService,
		Dashboard:   dashboardService,
	}, nil
}
