package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/dispatch"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/retell"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

type recordingDispatcher struct {
	envs  []dispatch.Envelope
	turns []dispatch.Envelope
}

func (d *recordingDispatcher) Handle(_ context.Context, env dispatch.Envelope) dispatch.Result {
	d.envs = append(d.envs, env)
	status := dispatch.StatusOK
	if dispatch.Classify(env.Event) == dispatch.KindUnrecognized {
		status = dispatch.StatusIgnored
	}
	return dispatch.Result{Event: env.Event, Status: status}
}

func (d *recordingDispatcher) HandleTurn(_ context.Context, env dispatch.Envelope) dispatch.TurnResponse {
	d.turns = append(d.turns, env)
	return dispatch.RespondToTurn(env.Intent)
}

type stubVerifier struct{ err error }

func (v stubVerifier) Verify(timestamp, signature string, body []byte) error {
	if timestamp == "" || signature == "" {
		return retell.ErrMissingSignature
	}
	return v.err
}

func postWebhook(t *testing.T, h *AgentWebhookHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/agent-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAgentWebhook_LifecycleEvents(t *testing.T) {
	tests := []struct {
		event  string
		status string
	}{
		{"call_started", "ok"},
		{"call_ended", "ok"},
		{"call_analyzed", "ok"},
		{"call_transferred", "ignored"},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			d := &recordingDispatcher{}
			h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Logger: logging.Discard()})

			rec := postWebhook(t, h, `{"event":"`+tt.event+`","call":{"call_id":"call_1"}}`, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, tt.event, body["event"])
			require.Len(t, d.envs, 1)
			assert.Equal(t, "call_1", d.envs[0].Call.CallID)
		})
	}
}

func TestAgentWebhook_InteractiveTurn(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Logger: logging.Discard()})

	rec := postWebhook(t, h, `{"intent":"book_pharmacy","user_input":"tomorrow?","call_id":"call_2"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dispatch.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "booking", resp.Metadata.Stage)
	assert.Len(t, d.turns, 1)
	assert.Empty(t, d.envs)
}

func TestAgentWebhook_MalformedJSON(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Logger: logging.Discard()})

	rec := postWebhook(t, h, `{"event":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, d.envs)
}

func TestAgentWebhook_BodyTooLarge(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, MaxBodyBytes: 16, Logger: logging.Discard()})

	rec := postWebhook(t, h, `{"event":"call_started","call":{"call_id":"call_1"}}`, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, d.envs)
}

func TestAgentWebhook_Signature(t *testing.T) {
	body := `{"event":"call_ended","call":{"call_id":"call_3"}}`
	signed := map[string]string{retell.HeaderTimestamp: "1700000000000", retell.HeaderSignature: "abc"}

	t.Run("missing headers", func(t *testing.T) {
		d := &recordingDispatcher{}
		h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Verifier: stubVerifier{}, Logger: logging.Discard()})
		rec := postWebhook(t, h, body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, d.envs)
	})
	t.Run("mismatch", func(t *testing.T) {
		d := &recordingDispatcher{}
		h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Verifier: stubVerifier{err: errors.New("bad")}, Logger: logging.Discard()})
		rec := postWebhook(t, h, body, signed)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, d.envs)
	})
	t.Run("valid", func(t *testing.T) {
		d := &recordingDispatcher{}
		h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Verifier: stubVerifier{}, Logger: logging.Discard()})
		rec := postWebhook(t, h, body, signed)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, d.envs, 1)
	})
}

func TestAgentWebhook_RealVerifierAndDispatcher(t *testing.T) {
	body := []byte(`{"event":"call_analyzed","call":{"call_id":"call_4","from_number":"+15551234567",` +
		`"call_analysis":{"custom_analysis_data":{"first_name":"Ana","appointment_booked":"yes"}}}}`)
	d := dispatch.New(dispatch.Config{Logger: logging.Discard()})
	h := NewAgentWebhookHandler(AgentWebhookConfig{Dispatcher: d, Verifier: retell.NewVerifier("whsec", 0), Logger: logging.Discard()})

	send := func(ts string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/agent-webhook", bytes.NewReader(body))
		req.Header.Set(retell.HeaderTimestamp, ts)
		req.Header.Set(retell.HeaderSignature, retell.Sign("whsec", ts, body))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		return rec
	}

	rec := send(strconv.FormatInt(time.Now().UnixMilli(), 10))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","event":"call_analyzed"}`, rec.Body.String())

	stale := send(strconv.FormatInt(time.Now().Add(-time.Hour).UnixMilli(), 10))
	assert.Equal(t, http.StatusUnauthorized, stale.Code)
}
