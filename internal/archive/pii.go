package archive

import (
	"crypto/sha256"
	"fmt"
	"regexp"
)

var (
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe      = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
	healthCardRe = regexp.MustCompile(`\b[0-9]{4}[-\s][0-9]{3}[-\s][0-9]{3}(?:[-\s]?[A-Za-z]{2})?\b`)
)

// HashPhone returns the hex-encoded SHA-256 hash of a phone number.
func HashPhone(phone string) string {
	if phone == "" {
		return ""
	}
	h := sha256.Sum256([]byte(phone))
	return fmt.Sprintf("%x", h)
}

// ScrubPII replaces emails, health card numbers and phone numbers with
// placeholders. Health cards go first since their digit groups also look like
// phone numbers.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = healthCardRe.ReplaceAllString(text, "[HEALTH_CARD]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}
