// Package archive keeps an immutable JSON copy of every consultation record in
// S3 alongside a monthly JSONL manifest.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

const (
	keyPrefix      = "consultations/v1"
	previewMaxRune = 160
)

// Store archives consultation records to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// RecordKey is the object key for a record. Records are partitioned by call
// start date, or by archive date when the call has no start timestamp.
func RecordKey(rec *consultation.Record, fallback time.Time) string {
	day := fallback.UTC()
	if ms := rec.CallMeta.StartTimestamp; ms > 0 {
		day = time.UnixMilli(ms).UTC()
	}
	return fmt.Sprintf("%s/by-date/%d/%02d/%02d/%s.json", keyPrefix, day.Year(), day.Month(), day.Day(), rec.CallMeta.CallID)
}

// Store writes rec as JSON and appends a manifest line. A manifest failure is
// logged but does not fail the write.
func (s *Store) Store(ctx context.Context, rec *consultation.Record) error {
	if !s.Enabled() {
		return nil
	}
	if rec == nil || rec.CallMeta.CallID == "" {
		return errors.New("archive: record with call id required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	now := s.now().UTC()
	key := RecordKey(rec, now)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("archived consultation to S3", "call_id", rec.CallMeta.CallID, "s3_key", key)

	entry := ManifestEntry{
		CallID:           rec.CallMeta.CallID,
		S3Key:            key,
		PhoneHash:        HashPhone(rec.Contact.Phone),
		PrimaryCondition: rec.Symptoms.PrimaryCondition,
		Booked:           rec.Appointment.Booked,
		SummaryPreview:   preview(ScrubPII(rec.Analysis.Summary)),
		ArchivedAt:       now.Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry, now); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "call_id", rec.CallMeta.CallID)
	}
	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry, now time.Time) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	manifestKey := fmt.Sprintf("%s/manifests/%d-%02d.jsonl", keyPrefix, now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= previewMaxRune {
		return text
	}
	return string(r[:previewMaxRune]) + "..."
}
