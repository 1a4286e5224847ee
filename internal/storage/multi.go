package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// RecordStore is implemented by every persistence backend.
type RecordStore interface {
	Store(ctx context.Context, rec *consultation.Record) error
}

// Named pairs a backend with the name used in logs and errors.
type Named struct {
	Name  string
	Store RecordStore
}

// MultiStore writes a record to each backend in order. One failing backend
// does not stop the rest.
type MultiStore struct {
	stores []Named
	logger *logging.Logger
}

// NewMultiStore drops entries with a nil store.
func NewMultiStore(logger *logging.Logger, stores ...Named) *MultiStore {
	if logger == nil {
		logger = logging.Default()
	}
	m := &MultiStore{logger: logger}
	for _, s := range stores {
		if s.Store != nil {
			m.stores = append(m.stores, s)
		}
	}
	return m
}

// Len reports how many backends are configured.
func (m *MultiStore) Len() int {
	return len(m.stores)
}

// Names lists the configured backends in write order.
func (m *MultiStore) Names() []string {
	names := make([]string, 0, len(m.stores))
	for _, s := range m.stores {
		names = append(names, s.Name)
	}
	return names
}

// Store returns the joined errors of every backend that failed.
func (m *MultiStore) Store(ctx context.Context, rec *consultation.Record) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Store.Store(ctx, rec); err != nil {
			m.logger.Error("storage: backend write failed", "backend", s.Name, "call_id", rec.CallMeta.CallID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		m.logger.Debug("storage: backend write ok", "backend", s.Name, "call_id", rec.CallMeta.CallID)
	}
	return errors.Join(errs...)
}
