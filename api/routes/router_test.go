package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/pkg/auth"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type stubZones struct{}

func (stubZones) List(context.Context) ([]pricing.Zone, error) {
	return []pricing.Zone{{Name: "Inside Dhaka", Charge: 60}}, nil
}

type stubRisk struct{}

func (stubRisk) Check(context.Context, string) (risk.Assessment, error) { return risk.Assessment{}, nil }
func (stubRisk) Policy() risk.GatePolicy                                 { return risk.DefaultGatePolicy() }
func (stubRisk) ClearCache(context.Context) (int64, error)               { return 0, nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "orderdesk", ExpirationMinutes: 30},
		Checkout: config.CheckoutConfig{
			IdempotencyTTL: time.Hour,
			AbandonedAfter: 30 * time.Minute,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	router := NewRouter(testConfig(), nil, Dependencies{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memoryStore{},
		Zones:       stubZones{},
		Risk:        stubRisk{},
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	})
	return router, reg
}

func bearer(t *testing.T, role enums.OperatorRole) string {
	t.Helper()
	token, err := auth.MintOperatorToken(testConfig().JWT, time.Now().UTC(), auth.OperatorTokenPayload{
		Subject: "ops-1",
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: missing request id", path)
		}
	}
}

func TestPublicZones(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/zones", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Inside Dhaka") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestPlaceOrderRequiresIdempotencyKey(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/risk?phone=01712345678", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminOperatorCanCheckRisk(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/risk?phone=01712345678", nil)
	req.Header.Set("Authorization", bearer(t, enums.OperatorRoleOperator))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestClearRiskCacheNeedsAdmin(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/risk/cache", nil)
	req.Header.Set("Authorization", bearer(t, enums.OperatorRoleOperator))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/v1/risk/cache", nil)
	req.Header.Set("Authorization", bearer(t, enums.OperatorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointExposesRouteLabels(t *testing.T) {
	router, _ := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/checkout/zones", nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "orderdesk_http_requests_total") {
		t.Fatalf("http metrics missing from scrape")
	}
}
