// Package sms delivers confirmation texts through Telnyx or Twilio.
package sms

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/notify"
)

// Messenger sends one rendered confirmation message.
type Messenger interface {
	Send(ctx context.Context, msg notify.Message) error
}

const maxAttempts = 3

// backoff returns the pause before the next attempt. Tests replace it.
var backoff = func(int) time.Duration {
	return time.Duration(200+rand.Intn(300)) * time.Millisecond
}

func validate(msg notify.Message, from string) error {
	if strings.TrimSpace(msg.DestinationPhone) == "" {
		return errors.New("sms: destination phone required")
	}
	if strings.TrimSpace(from) == "" {
		return errors.New("sms: from number required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return errors.New("sms: body required")
	}
	return nil
}

// retryable reports whether a provider status should be tried again.
func retryable(status int) bool {
	if status == 429 {
		return true
	}
	return status >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
