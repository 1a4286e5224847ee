package retell

import (
	"errors"
	"strings"
)

// Agent is the subset of agent fields the tooling prints.
type Agent struct {
	AgentID          string `json:"agent_id"`
	AgentName        string `json:"agent_name,omitempty"`
	VoiceID          string `json:"voice_id,omitempty"`
	WebhookURL       string `json:"webhook_url,omitempty"`
	LastModification int64  `json:"last_modification_timestamp,omitempty"`
}

// CreateWebCallRequest starts a browser call.
type CreateWebCallRequest struct {
	AgentID  string            `json:"agent_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreatePhoneCallRequest places an outbound call.
type CreatePhoneCallRequest struct {
	FromNumber      string            `json:"from_number"`
	ToNumber        string            `json:"to_number"`
	OverrideAgentID string            `json:"override_agent_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

func (r CreatePhoneCallRequest) validate() error {
	if strings.TrimSpace(r.FromNumber) == "" {
		return errors.New("retell: from number required")
	}
	if strings.TrimSpace(r.ToNumber) == "" {
		return errors.New("retell: to number required")
	}
	return nil
}

// Call mirrors the call object returned by the API and sent in webhooks.
type Call struct {
	CallID              string `json:"call_id"`
	CallType            string `json:"call_type,omitempty"`
	AgentID             string `json:"agent_id,omitempty"`
	CallStatus          string `json:"call_status,omitempty"`
	AccessToken         string `json:"access_token,omitempty"`
	FromNumber          string `json:"from_number,omitempty"`
	ToNumber            string `json:"to_number,omitempty"`
	StartTimestamp      int64  `json:"start_timestamp,omitempty"`
	EndTimestamp        int64  `json:"end_timestamp,omitempty"`
	DurationMs          int64  `json:"duration_ms,omitempty"`
	Transcript          string `json:"transcript,omitempty"`
	DisconnectionReason string `json:"disconnection_reason,omitempty"`
}
