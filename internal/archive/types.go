package archive

// ManifestEntry is one JSONL line in the monthly manifest. It carries enough to
// find an archived record without exposing the caller's number.
type ManifestEntry struct {
	CallID           string `json:"call_id"`
	S3Key            string `json:"s3_key"`
	PhoneHash        string `json:"phone_hash,omitempty"`
	PrimaryCondition string `json:"primary_condition,omitempty"`
	Booked           bool   `json:"booked"`
	SummaryPreview   string `json:"summary_preview,omitempty"`
	ArchivedAt       string `json:"archived_at"`
}
