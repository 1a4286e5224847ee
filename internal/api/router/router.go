package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/pharmacy-intake-bridge/internal/http/middleware"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        *handlers.AgentWebhookHandler
	Status         *handlers.StatusHandler
	MetricsHandler http.Handler

	// Admin lookups are mounted only when both are set.
	AdminConsultations *handlers.AdminConsultationsHandler
	AdminAuthSecret    string
	AdminRateLimit     *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.SecurityHeaders)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		if cfg.Status != nil {
			public.Get("/", cfg.Status.Health)
			public.Get("/health", cfg.Status.Health)
			public.Get("/test-webhook", cfg.Status.TestWebhook)
		}
		if cfg.Webhook != nil {
			public.Post("/webhooks/agent-webhook", cfg.Webhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AdminConsultations != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			if cfg.AdminRateLimit != nil {
				admin.Use(httpmiddleware.RateLimit(cfg.AdminRateLimit))
			}
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, cfg.Logger))
			cfg.AdminConsultations.Routes(admin)
		})
	}

	return r
}
