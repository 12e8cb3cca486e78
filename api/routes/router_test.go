package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/ims-backend/internal/dashboard"
	"github.com/angelmondragon/ims-backend/internal/devices"
	pkgAuth "github.com/angelmondragon/ims-backend/pkg/auth"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/angelmondragon/ims-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubDevices struct {
	devices.Service
	marked uuid.UUID
}

func (s *stubDevices) MarkAvailable(ctx context.Context, actor authz.Actor, id uuid.UUID) (*devices.DeviceDTO, error) {
	s.marked = id
	return &devices.DeviceDTO{ID: id, Status: enums.DeviceStatusAvailable}, nil
}

type stubDashboard struct{}

func (stubDashboard) Stats(context.Context) (*dashboard.Stats, error) {
	return &dashboard.Stats{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test"},
		JWT:     config.JWTConfig{Secret: "router-secret", Issuer: "ims", ExpirationMinutes: 15},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Storage: config.StorageConfig{PublicBaseURL: "/media", MaxUploadMB: 1},
	}
}

func tokenFor(t *testing.T, cfg *config.Config, role enums.EmployeeRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       role,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func newTestRouter(t *testing.T, deviceSvc devices.Service, reg *prometheus.Registry) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	handler := NewRouter(cfg, logg, Services{
		Devices:   deviceSvc,
		Dashboard: stubDashboard{},
	}, Infra{
		Sessions:    stubSessions{},
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	})
	return handler, cfg
}

func do(handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	handler, _ := newTestRouter(t, &stubDevices{}, prometheus.NewRegistry())
	if rec := do(handler, http.MethodGet, "/health/live", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler, _ := newTestRouter(t, &stubDevices{}, prometheus.NewRegistry())
	for _, path := range []string{"/api/v1/dashboard/stats", "/api/v1/dashboard/stats/", "/api/v1/assignments"} {
		if rec := do(handler, http.MethodGet, path, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestTrailingSlashRoutesToSameHandler(t *testing.T) {
	handler, cfg := newTestRouter(t, &stubDevices{}, prometheus.NewRegistry())
	token := tokenFor(t, cfg, enums.EmployeeRoleEmployee)
	if rec := do(handler, http.MethodGet, "/api/v1/dashboard/stats/", token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestDeviceManagementNeedsCapability(t *testing.T) {
	svc := &stubDevices{}
	handler, cfg := newTestRouter(t, svc, prometheus.NewRegistry())
	id := uuid.New()
	path := "/api/v1/devices/" + id.String() + "/mark_available/"

	if rec := do(handler, http.MethodPost, path, tokenFor(t, cfg, enums.EmployeeRoleEmployee)); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	if svc.marked != uuid.Nil {
		t.Fatal("service must not run for a forbidden caller")
	}

	rec := do(handler, http.MethodPost, path, tokenFor(t, cfg, enums.EmployeeRoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.marked != id {
		t.Fatalf("expected device %s got %s", id, svc.marked)
	}
}

func TestMetricsUseRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler, cfg := newTestRouter(t, &stubDevices{}, reg)
	token := tokenFor(t, cfg, enums.EmployeeRoleAdmin)
	do(handler, http.MethodPost, "/api/v1/devices/"+uuid.NewString()+"/mark_available", token)
	do(handler, http.MethodPost, "/api/v1/devices/"+uuid.NewString()+"/mark_available", token)

	expected := `
# HELP ims_http_requests_total HTTP requests by method, route pattern and status code.
# TYPE ims_http_requests_total counter
ims_http_requests_total{method="POST",route="/api/v1/devices/{deviceId}/mark_available",status="200"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "ims_http_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
