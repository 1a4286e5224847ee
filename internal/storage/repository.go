// Package storage persists consultation records and fans a single record out
// to every configured backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository stores consultation records in Postgres, keyed by call id.
type Repository struct {
	pool         querier
	aliasVersion string
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool, aliasVersion string) *Repository {
	if pool == nil {
		panic("storage: pgx pool required")
	}
	return &Repository{pool: pool, aliasVersion: aliasVersion}
}

func newRepositoryWithQuerier(q querier, aliasVersion string) *Repository {
	if q == nil {
		panic("storage: querier required")
	}
	return &Repository{pool: q, aliasVersion: aliasVersion}
}

// Store inserts rec. A record for the same call id is never overwritten, so
// repeated deliveries keep the first analysis.
func (r *Repository) Store(ctx context.Context, rec *consultation.Record) error {
	if rec == nil || strings.TrimSpace(rec.CallMeta.CallID) == "" {
		return errors.New("storage: record with call id required")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode record: %w", err)
	}

	var startedAt *time.Time
	if ms := rec.CallMeta.StartTimestamp; ms > 0 {
		t := time.UnixMilli(ms).UTC()
		startedAt = &t
	}

	query := `
		INSERT INTO consultations (id, call_id, phone, first_name, last_name, primary_condition, severity, appointment_booked, alias_version, started_at, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (call_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query,
		uuid.New(),
		rec.CallMeta.CallID,
		rec.Contact.Phone,
		rec.Contact.FirstName,
		rec.Contact.LastName,
		rec.Symptoms.PrimaryCondition,
		rec.Symptoms.Severity,
		rec.Appointment.Booked,
		r.aliasVersion,
		startedAt,
		payload,
	); err != nil {
		return fmt.Errorf("storage: insert consultation: %w", err)
	}
	return nil
}

// Get loads the record stored for callID.
func (r *Repository) Get(ctx context.Context, callID string) (*consultation.Record, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT record FROM consultations WHERE call_id = $1`, callID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, consultation.ErrNotFound
		}
		return nil, fmt.Errorf("storage: select consultation: %w", err)
	}
	return decodeRecord(payload)
}

// Summary is a compact listing row for recent consultations.
type Summary struct {
	CallID           string    `json:"callId"`
	Phone            string    `json:"phone"`
	PrimaryCondition string    `json:"primaryCondition"`
	Booked           bool      `json:"appointmentBooked"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ListRecent returns up to limit summaries, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT call_id, phone, primary_condition, appointment_booked, created_at
		FROM consultations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list consultations: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.CallID, &s.Phone, &s.PrimaryCondition, &s.Booked, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan consultation: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list consultations: %w", err)
	}
	return out, nil
}

func decodeRecord(payload []byte) (*consultation.Record, error) {
	rec := consultation.New("")
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("storage: decode record: %w", err)
	}
	if rec.Analysis.RawCustomData == nil {
		rec.Analysis.RawCustomData = map[string]any{}
	}
	return rec, nil
}
