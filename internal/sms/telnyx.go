package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/notify"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

var telnyxTracer = otel.Tracer("pharmacy.internal.sms.telnyx")

const defaultTelnyxBaseURL = "https://api.telnyx.com/v2"

// TelnyxSender posts SMS messages using Telnyx's V2 API.
type TelnyxSender struct {
	apiKey             string
	messagingProfileID string
	from               string
	baseURL            string
	httpClient         *http.Client
	logger             *logging.Logger
}

// TelnyxOption customizes a TelnyxSender.
type TelnyxOption func(*TelnyxSender)

// WithTelnyxBaseURL points the sender at a different API host.
func WithTelnyxBaseURL(u string) TelnyxOption {
	return func(s *TelnyxSender) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTelnyxHTTPClient overrides the HTTP client.
func WithTelnyxHTTPClient(c *http.Client) TelnyxOption {
	return func(s *TelnyxSender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// NewTelnyxSender builds a sender for the Telnyx V2 API.
func NewTelnyxSender(apiKey, messagingProfileID, from string, logger *logging.Logger, opts ...TelnyxOption) *TelnyxSender {
	if logger == nil {
		logger = logging.Default()
	}
	s := &TelnyxSender{
		apiKey:             apiKey,
		messagingProfileID: messagingProfileID,
		from:               from,
		baseURL:            defaultTelnyxBaseURL,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		logger:             logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Messenger = (*TelnyxSender)(nil)

// Send dispatches a single SMS, retrying rate limits and server errors.
func (s *TelnyxSender) Send(ctx context.Context, msg notify.Message) error {
	if s.apiKey == "" {
		return errors.New("sms: telnyx api key missing")
	}
	if err := validate(msg, s.from); err != nil {
		return err
	}

	ctx, span := telnyxTracer.Start(ctx, "sms.telnyx.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("pharmacy.call_id", msg.CallID),
		attribute.String("pharmacy.to", msg.DestinationPhone),
	)

	payload := map[string]string{
		"from": s.from,
		"to":   msg.DestinationPhone,
		"text": msg.Body,
	}
	if s.messagingProfileID != "" {
		payload["messaging_profile_id"] = s.messagingProfileID
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sms: marshal telnyx payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := s.post(ctx, bodyBytes)
		if err == nil {
			s.logger.Info("telnyx sms sent", "call_id", msg.CallID, "to", msg.DestinationPhone, "attempt", attempt)
			return nil
		}
		lastErr = err
		if status != 0 && !retryable(status) {
			break
		}
		if attempt < maxAttempts {
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	span.RecordError(lastErr)
	s.logger.Error("failed to send telnyx sms", "error", lastErr, "call_id", msg.CallID, "to", msg.DestinationPhone)
	return lastErr
}

func (s *TelnyxSender) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("telnyx send failed: %s", formatTelnyxError(resp.StatusCode, raw))
}

type telnyxErrorBody struct {
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func formatTelnyxError(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var parsed telnyxErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		e := parsed.Errors[0]
		detail := e.Detail
		if detail == "" {
			detail = e.Title
		}
		return fmt.Sprintf("status %d code %s: %s", status, e.Code, detail)
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
