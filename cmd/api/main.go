package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/pharmacy-intake-bridge/cmd/mainconfig"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/api/router"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pharmacy-intake-bridge/internal/config"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/pharmacy-intake-bridge/internal/http/middleware"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/observability/metrics"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/retell"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/sheets"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting pharmacy-intake-bridge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	metricsHandler, webhookMetrics, registry := setupMetrics()

	backends, closeBackends, err := connectBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect backends", "error", err)
		os.Exit(1)
	}
	defer closeBackends()

	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, backends, webhookMetrics, logger)
	if err != nil {
		logger.Error("failed to build webhook pipeline", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildRouter(cfg, pipeline, metricsHandler, registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.WebhookMetrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWebhookMetrics(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), m, registry
}

// connectBackends opens every configured external client. The returned func
// closes whatever was opened.
func connectBackends(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (bootstrap.Backends, func(), error) {
	var b bootstrap.Backends
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if client := bootstrap.BuildRedisClient(ctx, cfg, logger, true); client != nil {
		b.Redis = client
		closers = append(closers, func() { _ = client.Close() })
	}
	if pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger); pool != nil {
		b.Pool = pool
		closers = append(closers, pool.Close)
	}

	if cfg.EnableDataStorage && cfg.SheetsConfigured() {
		values, err := sheets.NewValuesAPI(ctx, cfg.GoogleSheetsCredentials)
		if err != nil {
			closeAll()
			return bootstrap.Backends{}, func() {}, err
		}
		b.Sheets = values
	}

	if mainconfig.NeedsAWS(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			closeAll()
			return bootstrap.Backends{}, func() {}, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.ArchiveBucket != "" {
			b.S3 = mainconfig.NewS3Client(awsCfg, cfg)
		}
		if cfg.SESFromEmail != "" {
			b.SES = mainconfig.NewSESClient(awsCfg, cfg)
		}
	}

	return b, closeAll, nil
}

func buildRouter(cfg *appconfig.Config, p *bootstrap.Pipeline, metricsHandler http.Handler, gatherer prometheus.Gatherer, logger *logging.Logger) http.Handler {
	webhookCfg := handlers.AgentWebhookConfig{Dispatcher: p.Dispatcher, Logger: logger}
	if cfg.WebhookSecret != "" {
		webhookCfg.Verifier = retell.NewVerifier(cfg.WebhookSecret, cfg.WebhookMaxSkew)
	} else {
		logger.Warn("WEBHOOK_SECRET not set; accepting unsigned webhooks")
	}

	routerCfg := &router.Config{
		Logger:  logger,
		Webhook: handlers.NewAgentWebhookHandler(webhookCfg),
		Status: handlers.NewStatusHandler(handlers.StatusConfig{
			StorageEnabled:   cfg.EnableDataStorage,
			SheetsConfigured: cfg.SheetsConfigured(),
			Stores:           p.Stores.Names(),
			SMSProvider:      p.SMSProvider,
			SignedWebhooks:   webhookCfg.Verifier != nil,
			Gatherer:         gatherer,
		}),
		MetricsHandler:  metricsHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
		AdminRateLimit:  httpmiddleware.NewRateLimiter(5, 20),
	}
	if p.Repository != nil {
		routerCfg.AdminConsultations = handlers.NewAdminConsultationsHandler(p.Repository, logger)
	}
	return router.New(routerCfg)
}
