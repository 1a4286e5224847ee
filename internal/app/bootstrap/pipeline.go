package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/archive"
	appconfig "github.com/wolfman30/pharmacy-intake-bridge/internal/config"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/dispatch"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/events"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/extraction"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/mapping"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/notify"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/observability/metrics"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/sheets"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/storage"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// Backends are the already-connected external clients. Nil fields disable the
// sink that would use them.
type Backends struct {
	Redis  redis.Cmdable
	Pool   *pgxpool.Pool
	Sheets sheets.ValuesAPI
	S3     archive.S3API
	SES    notify.SESAPI
}

// Pipeline is everything cmd/api needs to serve webhooks.
type Pipeline struct {
	Dispatcher  *dispatch.Dispatcher
	Stores      *storage.MultiStore
	Repository  *storage.Repository
	SMSProvider string
	DedupMode   string
}

// BuildMapper loads the alias override file when one is configured.
func BuildMapper(cfg *appconfig.Config) (*mapping.Mapper, error) {
	if cfg == nil || strings.TrimSpace(cfg.AliasTablePath) == "" {
		return mapping.NewMapper(nil, ""), nil
	}
	table, version, err := mapping.LoadAliasFile(cfg.AliasTablePath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return mapping.NewMapper(table, version), nil
}

// BuildRecordStore fans records out to every configured backend in the order
// sheets, postgres, s3. The repository is returned separately for lookups.
func BuildRecordStore(ctx context.Context, cfg *appconfig.Config, b Backends, aliasVersion string, logger *logging.Logger) (*storage.MultiStore, *storage.Repository) {
	if logger == nil {
		logger = logging.Default()
	}
	var named []storage.Named

	if b.Sheets != nil && cfg.SheetsConfigured() {
		appender := sheets.NewAppender(b.Sheets, cfg.GoogleSheetsSpreadsheetID, cfg.GoogleSheetsTab, logger)
		if err := appender.EnsureHeaders(ctx); err != nil {
			logger.Warn("could not write sheet headers at startup; retrying on first append", "error", err)
		}
		named = append(named, storage.Named{Name: "sheets", Store: appender})
	}

	var repo *storage.Repository
	if b.Pool != nil {
		repo = storage.NewRepository(b.Pool, aliasVersion)
		named = append(named, storage.Named{Name: "postgres", Store: repo})
	}

	if b.S3 != nil && strings.TrimSpace(cfg.ArchiveBucket) != "" {
		named = append(named, storage.Named{Name: "s3", Store: archive.NewStore(b.S3, cfg.ArchiveBucket, logger)})
	}

	return storage.NewMultiStore(logger, named...), repo
}

// BuildDeduper prefers Redis and falls back to the processed_events table.
func BuildDeduper(cfg *appconfig.Config, b Backends) (dispatch.Deduper, string) {
	switch {
	case b.Redis != nil:
		return events.NewRedisDeduper(b.Redis, cfg.DedupTTL), "redis"
	case b.Pool != nil:
		return events.NewProcessedStore(b.Pool), "postgres"
	default:
		return nil, "none"
	}
}

// BuildPipeline assembles the dispatcher and its collaborators.
func BuildPipeline(ctx context.Context, cfg *appconfig.Config, b Backends, m *metrics.WebhookMetrics, logger *logging.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	mapper, err := BuildMapper(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{}
	p.Stores, p.Repository = BuildRecordStore(ctx, cfg, b, mapper.Version(), logger)

	messenger, provider, reason := BuildOutboundMessenger(cfg, logger)
	p.SMSProvider = provider

	deduper, mode := BuildDeduper(cfg, b)
	p.DedupMode = mode

	dcfg := dispatch.Config{
		Mapper:         mapper,
		Extractor:      extraction.New(extraction.WithDurationUnits(extraction.UnitsByName(cfg.DurationUnits))),
		Decider:        notify.NewDecider(PharmacyFromConfig(cfg)),
		Messenger:      messenger,
		Deduper:        deduper,
		DisableStorage: !cfg.EnableDataStorage,
		Metrics:        m,
		Logger:         logger,
	}
	if p.Stores.Len() > 0 {
		dcfg.Store = p.Stores
	}
	if alerter := BuildStaffAlerter(cfg, b.SES, logger); alerter != nil {
		dcfg.Staff = alerter
	}
	p.Dispatcher = dispatch.New(dcfg)

	logger.Info("webhook pipeline ready",
		"stores", p.Stores.Names(),
		"storage_enabled", cfg.EnableDataStorage,
		"sms_provider", provider,
		"sms_reason", reason,
		"dedup", mode,
		"alias_version", mapper.Version(),
		"staff_alerts", dcfg.Staff != nil,
	)
	return p, nil
}
