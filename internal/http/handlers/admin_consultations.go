package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/storage"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// ConsultationReader looks up stored consultation records.
type ConsultationReader interface {
	Get(ctx context.Context, callID string) (*consultation.Record, error)
	ListRecent(ctx context.Context, limit int) ([]storage.Summary, error)
}

// AdminConsultationsHandler serves staff lookups of stored records.
type AdminConsultationsHandler struct {
	reader ConsultationReader
	logger *logging.Logger
}

func NewAdminConsultationsHandler(reader ConsultationReader, logger *logging.Logger) *AdminConsultationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminConsultationsHandler{reader: reader, logger: logger}
}

// Routes mounts the lookup endpoints.
func (h *AdminConsultationsHandler) Routes(r chi.Router) {
	r.Get("/consultations", h.List)
	r.Get("/consultations/{callID}", h.Get)
}

// Get returns one record by call id.
func (h *AdminConsultationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	callID := strings.TrimSpace(chi.URLParam(r, "callID"))
	if callID == "" {
		jsonError(w, "call id required", http.StatusBadRequest)
		return
	}
	rec, err := h.reader.Get(r.Context(), callID)
	if errors.Is(err, consultation.ErrNotFound) {
		jsonError(w, "consultation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("consultation lookup failed", "call_id", callID, "error", err)
		jsonError(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// List returns the most recent records, newest first. ?limit= is clamped by
// the repository.
func (h *AdminConsultationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	items, err := h.reader.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("consultation list failed", "error", err)
		jsonError(w, "list failed", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"consultations": items})
}
