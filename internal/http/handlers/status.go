package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/observability/metrics"
)

// StatusConfig describes what the diagnostics endpoint reports.
type StatusConfig struct {
	StorageEnabled   bool
	SheetsConfigured bool
	Stores           []string
	SMSProvider      string
	SignedWebhooks   bool
	Gatherer         prometheus.Gatherer
}

// StatusHandler serves liveness and configuration diagnostics.
type StatusHandler struct {
	cfg StatusConfig
}

func NewStatusHandler(cfg StatusConfig) *StatusHandler {
	if cfg.Stores == nil {
		cfg.Stores = []string{}
	}
	return &StatusHandler{cfg: cfg}
}

// Health reports liveness.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type diagnostics struct {
	Message          string               `json:"message"`
	StorageEnabled   bool                 `json:"storageEnabled"`
	SheetsConfigured bool                 `json:"sheetsConfigured"`
	Stores           []string             `json:"stores"`
	SMSProvider      string               `json:"smsProvider"`
	SignedWebhooks   bool                 `json:"signedWebhooks"`
	Events           []metrics.EventCount `json:"events"`
}

// TestWebhook reports which sinks are wired and how many events have been
// handled since startup.
func (h *StatusHandler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	events := []metrics.EventCount{}
	if h.cfg.Gatherer != nil {
		events = metrics.SnapshotEvents(h.cfg.Gatherer)
	}
	writeJSON(w, http.StatusOK, diagnostics{
		Message:          "webhook endpoint is reachable",
		StorageEnabled:   h.cfg.StorageEnabled,
		SheetsConfigured: h.cfg.SheetsConfigured,
		Stores:           h.cfg.Stores,
		SMSProvider:      h.cfg.SMSProvider,
		SignedWebhooks:   h.cfg.SignedWebhooks,
		Events:           events,
	})
}
