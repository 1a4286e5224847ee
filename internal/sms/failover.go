package sms

import (
	"context"
	"errors"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/notify"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// FailoverMessenger attempts a primary send, then falls back to a secondary provider on error.
type FailoverMessenger struct {
	primary       Messenger
	secondary     Messenger
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverMessenger builds a failover messenger with named providers.
func NewFailoverMessenger(primary Messenger, primaryName string, secondary Messenger, secondaryName string, logger *logging.Logger) *FailoverMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverMessenger{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ Messenger = (*FailoverMessenger)(nil)

// Send tries the primary provider, then the secondary. When both fail the
// returned error wraps both causes.
func (f *FailoverMessenger) Send(ctx context.Context, msg notify.Message) error {
	if f == nil || f.primary == nil {
		return errors.New("sms: failover primary sender not configured")
	}
	err := f.primary.Send(ctx, msg)
	if err == nil || f.secondary == nil {
		return err
	}
	f.logger.Warn("primary sms send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
		"call_id", msg.CallID,
	)
	if fallbackErr := f.secondary.Send(ctx, msg); fallbackErr != nil {
		f.logger.Error("fallback sms send failed", "provider", f.secondaryName, "error", fallbackErr, "call_id", msg.CallID)
		return errors.Join(err, fallbackErr)
	}
	return nil
}

// LogMessenger records messages instead of sending them. It is used when no
// provider credentials are configured outside production.
type LogMessenger struct {
	logger *logging.Logger
}

// NewLogMessenger returns a messenger that only logs.
func NewLogMessenger(logger *logging.Logger) *LogMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogMessenger{logger: logger}
}

// Send logs a preview of the message.
func (l *LogMessenger) Send(ctx context.Context, msg notify.Message) error {
	preview := msg.Body
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	l.logger.Info("log messenger: would send sms", "to", msg.DestinationPhone, "call_id", msg.CallID, "body_preview", preview)
	return nil
}
