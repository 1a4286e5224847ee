package bootstrap

import (
	"strings"

	appconfig "github.com/wolfman30/pharmacy-intake-bridge/internal/config"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/notify"
	"github.com/wolfman30/pharmacy-intake-bridge/internal/sms"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// ProviderLog names the fallback messenger that only logs confirmations.
const ProviderLog = "log"

// BuildOutboundMessenger picks an SMS provider from config. Without usable
// credentials it falls back to a messenger that logs instead of sending, and
// reports why.
func BuildOutboundMessenger(cfg *appconfig.Config, logger *logging.Logger) (sms.Messenger, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return sms.NewLogMessenger(logger), ProviderLog, "missing config"
	}
	messenger, provider, reason := sms.BuildMessenger(sms.ProviderConfig{
		Preference:       cfg.SMSProvider,
		FromNumber:       cfg.SMSFromNumber,
		TelnyxAPIKey:     cfg.TelnyxAPIKey,
		TelnyxProfileID:  cfg.TelnyxMessagingProfileID,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
	}, logger)
	if messenger == nil {
		logger.Warn("sms disabled; confirmations will be logged only", "reason", reason)
		return sms.NewLogMessenger(logger), ProviderLog, reason
	}
	return messenger, provider, ""
}

// BuildEmailSender prefers SendGrid, then SES, then a logging stub.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) (notify.EmailSender, string) {
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		return sg, "sendgrid"
	}
	if strings.TrimSpace(cfg.SESFromEmail) != "" {
		if sender := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender, "ses"
		}
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildStaffAlerter returns nil when no staff address is configured.
func BuildStaffAlerter(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) *notify.StaffAlerter {
	if cfg == nil || strings.TrimSpace(cfg.StaffAlertEmail) == "" {
		return nil
	}
	sender, _ := BuildEmailSender(cfg, ses, logger)
	return notify.NewStaffAlerter(sender, splitList(cfg.StaffAlertEmail), PharmacyFromConfig(cfg), logger)
}

// PharmacyFromConfig collects the confirmation template values.
func PharmacyFromConfig(cfg *appconfig.Config) notify.Pharmacy {
	return notify.Pharmacy{
		Name:     cfg.PharmacyName,
		Location: cfg.PharmacyLocation,
		Phone:    cfg.PharmacyPhone,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
