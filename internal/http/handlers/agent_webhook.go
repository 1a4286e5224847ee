package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/dispatch"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/retell"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// DefaultMaxWebhookBytes caps inbound webhook bodies. Analyzed calls carry the
// full transcript so the limit is generous.
const DefaultMaxWebhookBytes int64 = 50 << 20

var tracer = otel.Tracer("pharmacy.internal.http.handlers")

// EventDispatcher processes decoded webhook envelopes.
type EventDispatcher interface {
	Handle(ctx context.Context, env dispatch.Envelope) dispatch.Result
	HandleTurn(ctx context.Context, env dispatch.Envelope) dispatch.TurnResponse
}

// SignatureVerifier checks the platform's webhook signature headers.
type SignatureVerifier interface {
	Verify(timestamp, signature string, body []byte) error
}

// AgentWebhookConfig wires the webhook handler. A nil Verifier accepts
// unsigned deliveries.
type AgentWebhookConfig struct {
	Dispatcher   EventDispatcher
	Verifier     SignatureVerifier
	MaxBodyBytes int64
	Logger       *logging.Logger
}

// AgentWebhookHandler receives call lifecycle events and interactive turns.
type AgentWebhookHandler struct {
	dispatcher EventDispatcher
	verifier   SignatureVerifier
	maxBytes   int64
	logger     *logging.Logger
}

func NewAgentWebhookHandler(cfg AgentWebhookConfig) *AgentWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxWebhookBytes
	}
	return &AgentWebhookHandler{
		dispatcher: cfg.Dispatcher,
		verifier:   cfg.Verifier,
		maxBytes:   cfg.MaxBodyBytes,
		logger:     cfg.Logger,
	}
}

type webhookAck struct {
	Status string `json:"status"`
	Event  string `json:"event"`
}

// Handle acknowledges every well-formed, authentic delivery with 200.
// Downstream failures are logged by the dispatcher and never change the reply.
func (h *AgentWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "webhook.agent")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r.Header.Get(retell.HeaderTimestamp), r.Header.Get(retell.HeaderSignature), body); err != nil {
			span.SetStatus(codes.Error, "signature rejected")
			h.logger.Warn("webhook signature rejected", "error", err, "remote_ip", r.RemoteAddr)
			jsonError(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var env dispatch.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.logger.Warn("webhook body is not valid JSON", "error", err, "bytes", len(body))
		jsonError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if env.IsTurn() {
		span.SetAttributes(attribute.String("pharmacy.intent", env.Intent))
		writeJSON(w, http.StatusOK, h.dispatcher.HandleTurn(ctx, env))
		return
	}

	res := h.dispatcher.Handle(ctx, env)
	span.SetAttributes(
		attribute.String("pharmacy.event", env.Event),
		attribute.String("pharmacy.status", res.Status),
	)
	writeJSON(w, http.StatusOK, webhookAck{Status: res.Status, Event: env.Event})
}
