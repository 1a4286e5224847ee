package dispatch

import (
	"strings"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/extraction"
)

// Lifecycle event tags sent by the call platform.
const (
	EventCallStarted  = "call_started"
	EventCallEnded    = "call_ended"
	EventCallAnalyzed = "call_analyzed"
)

// Envelope is the inbound webhook body. Lifecycle events carry Event and Call;
// interactive turns carry Intent, UserInput and CallID instead.
type Envelope struct {
	Event string `json:"event"`
	Call  Call   `json:"call"`

	Intent    string `json:"intent,omitempty"`
	UserInput string `json:"user_input,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

// IsTurn reports whether the envelope is an interactive turn request.
func (e Envelope) IsTurn() bool {
	return strings.TrimSpace(e.Event) == "" && strings.TrimSpace(e.Intent) != ""
}

// Call is the call object attached to lifecycle events.
type Call struct {
	CallID           string            `json:"call_id"`
	StartTimestamp   int64             `json:"start_timestamp"`
	DurationMs       int64             `json:"duration_ms"`
	FromNumber       string            `json:"from_number"`
	Transcript       string            `json:"transcript,omitempty"`
	TranscriptObject []extraction.Turn `json:"transcript_object,omitempty"`
	CallAnalysis     *CallAnalysis     `json:"call_analysis,omitempty"`
}

// CallAnalysis is the platform's post-call analysis block. It is only present
// on call_analyzed events.
type CallAnalysis struct {
	CallSummary               string         `json:"call_summary"`
	UserSentiment             string         `json:"user_sentiment"`
	CallSuccessful            *bool          `json:"call_successful"`
	CustomAnalysisData        map[string]any `json:"custom_analysis_data"`
	AgentTaskCompletionRating string         `json:"agent_task_completion_rating"`
}

// Kind is the dispatcher's classification of an event tag.
type Kind string

const (
	KindStarted      Kind = "started"
	KindEnded        Kind = "ended"
	KindAnalyzed     Kind = "analyzed"
	KindUnrecognized Kind = "unrecognized"
)

// Classify maps an event tag to a Kind. Unknown and empty tags are
// unrecognized rather than errors.
func Classify(tag string) Kind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case EventCallStarted:
		return KindStarted
	case EventCallEnded:
		return KindEnded
	case EventCallAnalyzed:
		return KindAnalyzed
	default:
		return KindUnrecognized
	}
}
