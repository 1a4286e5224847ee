package dispatch

import (
	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/extraction"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/mapping"
)

// BuildRecord turns an analyzed call into a consultation record. The mapper
// runs first and owns any field it sets; transcript extraction only fills the
// gaps it leaves.
func BuildRecord(call Call, m *mapping.Mapper, x *extraction.Extractor) (*consultation.Record, extraction.Fill) {
	if m == nil {
		m = mapping.NewMapper(nil, "")
	}
	if x == nil {
		x = extraction.New()
	}

	rec := consultation.New(call.CallID)
	rec.CallMeta.StartTimestamp = call.StartTimestamp
	rec.CallMeta.DurationMs = call.DurationMs

	var custom map[string]any
	if ca := call.CallAnalysis; ca != nil {
		rec.Analysis.Summary = ca.CallSummary
		rec.Analysis.Sentiment = ca.UserSentiment
		rec.Analysis.Successful = ca.CallSuccessful
		rec.Analysis.TaskCompletion = ca.AgentTaskCompletionRating
		custom = ca.CustomAnalysisData
	}
	m.Apply(rec, custom, call.FromNumber)

	fill := x.Extract(rec, extraction.UserLines(call.Transcript, call.TranscriptObject))
	return rec, fill
}
