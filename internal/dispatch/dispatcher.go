// Package dispatch classifies inbound call events and runs the analyzed-call
// pipeline: build the record, decide on a confirmation, persist, then notify.
package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/extraction"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/mapping"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/notify"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/observability/metrics"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

var tracer = otel.Tracer("pharmacy.internal.dispatch")

// RecordStore persists a finished record.
type RecordStore interface {
	Store(ctx context.Context, rec *consultation.Record) error
}

// Messenger delivers a rendered confirmation.
type Messenger interface {
	Send(ctx context.Context, msg notify.Message) error
}

// StaffNotifier alerts pharmacy staff about a booked consultation.
type StaffNotifier interface {
	NotifyBooked(ctx context.Context, rec *consultation.Record) error
}

// Deduper claims call ids so repeated deliveries are skipped.
type Deduper interface {
	Claim(ctx context.Context, callID string) (bool, error)
	Release(ctx context.Context, callID string) error
}

// Status values reported back to the event source.
const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
)

// Downstream outcome labels.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeSkipped = "skipped"
)

// Config wires the dispatcher's collaborators. Nil collaborators are skipped.
type Config struct {
	Mapper    *mapping.Mapper
	Extractor *extraction.Extractor
	Decider   *notify.Decider

	Store     RecordStore
	Messenger Messenger
	Staff     StaffNotifier
	Deduper   Deduper

	// DisableStorage skips persistence while still sending notifications.
	DisableStorage bool

	Metrics *metrics.WebhookMetrics
	Logger  *logging.Logger
}

// Dispatcher handles one envelope at a time. It holds no per-call state and is
// safe for concurrent use.
type Dispatcher struct {
	mapper    *mapping.Mapper
	extractor *extraction.Extractor
	decider   *notify.Decider

	store     RecordStore
	messenger Messenger
	staff     StaffNotifier
	deduper   Deduper

	storageEnabled bool
	metrics        *metrics.WebhookMetrics
	logger         *logging.Logger
}

// New builds a Dispatcher, filling defaults for the pure components.
func New(cfg Config) *Dispatcher {
	if cfg.Mapper == nil {
		cfg.Mapper = mapping.NewMapper(nil, "")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extraction.New()
	}
	if cfg.Decider == nil {
		cfg.Decider = notify.NewDecider(notify.Pharmacy{})
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Dispatcher{
		mapper:         cfg.Mapper,
		extractor:      cfg.Extractor,
		decider:        cfg.Decider,
		store:          cfg.Store,
		messenger:      cfg.Messenger,
		staff:          cfg.Staff,
		deduper:        cfg.Deduper,
		storageEnabled: !cfg.DisableStorage,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
}

// Result summarizes what Handle did. Only Status and Event are reported to the
// event source; the rest is for logs and tests.
type Result struct {
	Kind      Kind
	Event     string
	Status    string
	CallID    string
	Duplicate bool

	Record   *consultation.Record
	Fill     extraction.Fill
	Decision notify.Decision

	StoreErr  error
	NotifyErr error
	StaffErr  error
}

// Handle classifies env and processes it. Downstream failures are recorded in
// the Result and logged but never turned into an error for the caller.
func (d *Dispatcher) Handle(ctx context.Context, env Envelope) Result {
	start := time.Now()
	kind := Classify(env.Event)
	res := Result{Kind: kind, Event: env.Event, Status: StatusOK, CallID: env.Call.CallID}

	ctx, span := tracer.Start(ctx, "dispatch.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("pharmacy.event", env.Event),
		attribute.String("pharmacy.call_id", env.Call.CallID),
	)

	log := d.logger.WithCall(env.Call.CallID).With("event", env.Event)

	switch kind {
	case KindStarted, KindEnded:
		log.Info("call lifecycle event received", "kind", string(kind), "from_number", env.Call.FromNumber)
	case KindAnalyzed:
		d.handleAnalyzed(ctx, env.Call, &res, log)
	default:
		res.Status = StatusIgnored
		log.Warn("unrecognized call event ignored")
	}

	status := res.Status
	if res.Duplicate {
		status = "duplicate"
	}
	d.metrics.ObserveEvent(string(kind), status)
	d.metrics.ObserveLatency(string(kind), time.Since(start).Seconds())
	return res
}

func (d *Dispatcher) handleAnalyzed(ctx context.Context, call Call, res *Result, log *logging.Logger) {
	if d.deduper != nil && call.CallID != "" {
		first, err := d.deduper.Claim(ctx, call.CallID)
		switch {
		case err != nil:
			log.Warn("dedup check failed; processing anyway", "error", err)
		case !first:
			res.Duplicate = true
			log.Info("duplicate call_analyzed skipped")
			return
		}
	}

	rec, fill := BuildRecord(call, d.mapper, d.extractor)
	res.Record = rec
	res.Fill = fill
	d.observeFill(fill)
	log.Info("consultation record built",
		"primary_condition", rec.Symptoms.PrimaryCondition,
		"symptoms", rec.Symptoms.AdditionalSymptoms.Len(),
		"booked", rec.Appointment.Booked,
		"transcript_fields", fill.Any(),
	)

	res.Decision = d.decider.Decide(rec)

	res.StoreErr = d.persist(ctx, rec, log)
	res.NotifyErr = d.sendConfirmation(ctx, res.Decision, log)
	res.StaffErr = d.alertStaff(ctx, rec, log)

	if res.StoreErr != nil && !res.Decision.Send && d.deduper != nil && call.CallID != "" {
		if err := d.deduper.Release(ctx, call.CallID); err != nil {
			log.Warn("failed to release dedup claim", "error", err)
		}
	}
}

func (d *Dispatcher) persist(ctx context.Context, rec *consultation.Record, log *logging.Logger) error {
	if !d.storageEnabled || d.store == nil {
		d.metrics.ObserveDownstream("store", outcomeSkipped)
		log.Debug("data storage disabled; record not persisted")
		return nil
	}
	if err := d.store.Store(ctx, rec); err != nil {
		d.metrics.ObserveDownstream("store", outcomeError)
		log.Error("failed to persist consultation record", "error", err)
		return err
	}
	d.metrics.ObserveDownstream("store", outcomeOK)
	return nil
}

func (d *Dispatcher) sendConfirmation(ctx context.Context, dec notify.Decision, log *logging.Logger) error {
	if !dec.Send {
		d.metrics.ObserveDownstream("sms", outcomeSkipped)
		switch dec.Reason {
		case notify.ReasonNotBooked:
			log.Debug("no appointment booked; confirmation not sent")
		case notify.ReasonRenderFailed:
			log.Error("confirmation render failed", "error", dec.Err)
			return dec.Err
		default:
			log.Warn("confirmation skipped", "reason", string(dec.Reason))
		}
		return nil
	}
	if d.messenger == nil {
		d.metrics.ObserveDownstream("sms", outcomeSkipped)
		log.Warn("no messenger configured; confirmation not sent")
		return nil
	}
	if err := d.messenger.Send(ctx, dec.Message); err != nil {
		d.metrics.ObserveDownstream("sms", outcomeError)
		log.Error("failed to send confirmation", "error", err)
		return err
	}
	d.metrics.ObserveDownstream("sms", outcomeOK)
	log.Info("confirmation sent", "to", dec.Message.DestinationPhone)
	return nil
}

func (d *Dispatcher) alertStaff(ctx context.Context, rec *consultation.Record, log *logging.Logger) error {
	if d.staff == nil || !rec.Appointment.Booked {
		return nil
	}
	if err := d.staff.NotifyBooked(ctx, rec); err != nil {
		d.metrics.ObserveDownstream("staff_email", outcomeError)
		log.Error("failed to alert staff", "error", err)
		return err
	}
	d.metrics.ObserveDownstream("staff_email", outcomeOK)
	return nil
}

func (d *Dispatcher) observeFill(fill extraction.Fill) {
	if fill.Severity {
		d.metrics.ObserveFill("severity", 1)
	}
	if fill.Duration {
		d.metrics.ObserveFill("duration", 1)
	}
	if fill.Location {
		d.metrics.ObserveFill("location", 1)
	}
	d.metrics.ObserveFill("symptoms", fill.Symptoms)
	d.metrics.ObserveFill("medications", fill.Medications)
}

// HandleTurn answers an interactive turn request.
func (d *Dispatcher) HandleTurn(ctx context.Context, env Envelope) TurnResponse {
	resp := RespondToTurn(env.Intent)
	d.logger.WithCall(env.CallID).Info("processed interactive turn", "intent", env.Intent, "stage", resp.Metadata.Stage)
	d.metrics.ObserveEvent("turn", resp.Metadata.Stage)
	return resp
}
