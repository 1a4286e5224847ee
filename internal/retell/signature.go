package retell

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook signature headers.
const (
	HeaderSignature = "X-Retell-Signature"
	HeaderTimestamp = "X-Retell-Timestamp"
)

// Verification failures.
var (
	ErrMissingSignature = errors.New("retell: missing signature headers")
	ErrInvalidSignature = errors.New("retell: signature mismatch")
	ErrStaleTimestamp   = errors.New("retell: signature timestamp outside allowed skew")
)

// Verifier checks HMAC-SHA256(secret, timestamp + body) against the hex
// signature header.
type Verifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier returns a Verifier. A non-positive maxSkew defaults to five minutes.
func NewVerifier(secret string, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	return &Verifier{secret: []byte(secret), maxSkew: maxSkew, now: time.Now}
}

// Sign computes the hex signature for a timestamp and body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify validates a delivery. The timestamp may be in seconds or milliseconds.
func (v *Verifier) Verify(timestamp, signature string, body []byte) error {
	ts := strings.TrimSpace(timestamp)
	sig := strings.ToLower(strings.TrimSpace(signature))
	if ts == "" || sig == "" {
		return ErrMissingSignature
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("retell: invalid signature timestamp: %w", err)
	}
	sentAt := time.Unix(n, 0)
	if n > 1e12 {
		sentAt = time.UnixMilli(n)
	}
	if diff := v.now().Sub(sentAt); diff > v.maxSkew || diff < -v.maxSkew {
		return fmt.Errorf("%w: %s", ErrStaleTimestamp, diff.Round(time.Second))
	}
	expected := Sign(string(v.secret), ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}
