package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/dispatch"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/http/handlers"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/observability/metrics"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/storage"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

type memoryReader struct{}

func (memoryReader) Get(_ context.Context, callID string) (*consultation.Record, error) {
	if callID == "call_1" {
		return consultation.New(callID), nil
	}
	return nil, consultation.ErrNotFound
}

func (memoryReader) ListRecent(context.Context, int) ([]storage.Summary, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewWebhookMetrics(reg)
	d := dispatch.New(dispatch.Config{Metrics: m, Logger: logger})

	return New(&Config{
		Logger:             logger,
		Webhook:            handlers.NewAgentWebhookHandler(handlers.AgentWebhookConfig{Dispatcher: d, Logger: logger}),
		Status:             handlers.NewStatusHandler(handlers.StatusConfig{Gatherer: reg}),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminConsultations: handlers.NewAdminConsultationsHandler(memoryReader{}, logger),
		AdminAuthSecret:    "admin-secret",
	})
}

func do(t *testing.T, h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/", "/health"} {
		rr := do(t, router, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"healthy"`) {
			t.Errorf("%s: unexpected body %s", path, rr.Body.String())
		}
		if rr.Header().Get("X-Frame-Options") != "DENY" {
			t.Errorf("%s: expected security headers", path)
		}
	}
}

func TestRouterWebhookFeedsMetrics(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/webhooks/agent-webhook", `{"event":"call_started","call":{"call_id":"c1"}}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	rr = do(t, router, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rr.Body.String(), `pharmacy_webhook_events_total{kind="started",status="ok"} 1`) {
		t.Fatalf("expected event counter in metrics output:\n%s", rr.Body.String())
	}

	rr = do(t, router, http.MethodGet, "/test-webhook", "", nil)
	if !strings.Contains(rr.Body.String(), `"kind":"started"`) {
		t.Fatalf("expected event snapshot in diagnostics: %s", rr.Body.String())
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/admin/consultations/call_1", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "pharmacist",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("admin-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	auth := http.Header{"Authorization": []string{"Bearer " + token}}

	if rr := do(t, router, http.MethodGet, "/admin/consultations/call_1", "", auth); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr := do(t, router, http.MethodGet, "/admin/consultations/nope", "", auth); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestRouterAdminNotMountedWithoutSecret(t *testing.T) {
	router := New(&Config{
		AdminConsultations: handlers.NewAdminConsultationsHandler(memoryReader{}, nil),
	})
	rr := do(t, router, http.MethodGet, "/admin/consultations/call_1", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
