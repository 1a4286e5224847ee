package sms

import (
	"fmt"
	"strings"

	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

const (
	// ProviderAuto tries Telnyx first, then Twilio.
	ProviderAuto = "auto"
	// ProviderTelnyx forces the Telnyx sender when credentials exist.
	ProviderTelnyx = "telnyx"
	// ProviderTwilio forces the Twilio sender when credentials exist.
	ProviderTwilio = "twilio"
)

// ProviderConfig captures the credentials required to build outbound messengers.
type ProviderConfig struct {
	Preference       string
	FromNumber       string
	TelnyxAPIKey     string
	TelnyxProfileID  string
	TwilioAccountSID string
	TwilioAuthToken  string
}

// BuildMessenger instantiates a Messenger based on the preferred provider. It
// returns the messenger, the provider name, and a reason when nothing could be
// initialized.
func BuildMessenger(cfg ProviderConfig, logger *logging.Logger) (Messenger, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = ProviderAuto
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, "", "SMS_FROM_NUMBER missing"
	}

	missing := map[string]string{}
	var telnyx, twilio Messenger

	if cfg.TelnyxAPIKey != "" {
		telnyx = NewTelnyxSender(cfg.TelnyxAPIKey, cfg.TelnyxProfileID, cfg.FromNumber, logger)
	} else {
		missing[ProviderTelnyx] = "TELNYX_API_KEY missing"
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilio = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.FromNumber, logger)
	} else {
		var reasons []string
		if cfg.TwilioAccountSID == "" {
			reasons = append(reasons, "TWILIO_ACCOUNT_SID missing")
		}
		if cfg.TwilioAuthToken == "" {
			reasons = append(reasons, "TWILIO_AUTH_TOKEN missing")
		}
		missing[ProviderTwilio] = strings.Join(reasons, ", ")
	}

	switch preference {
	case ProviderTelnyx:
		if telnyx != nil {
			return telnyx, ProviderTelnyx, ""
		}
		return nil, "", missing[ProviderTelnyx]
	case ProviderTwilio:
		if twilio != nil {
			return twilio, ProviderTwilio, ""
		}
		return nil, "", missing[ProviderTwilio]
	case ProviderAuto:
	default:
		return nil, "", fmt.Sprintf("unknown sms provider %q", preference)
	}

	switch {
	case telnyx != nil && twilio != nil:
		return NewFailoverMessenger(telnyx, ProviderTelnyx, twilio, ProviderTwilio, logger), ProviderTelnyx + "+" + ProviderTwilio, ""
	case telnyx != nil:
		return telnyx, ProviderTelnyx, ""
	case twilio != nil:
		return twilio, ProviderTwilio, ""
	}
	return nil, "", fmt.Sprintf("%s: %s; %s: %s", ProviderTelnyx, missing[ProviderTelnyx], ProviderTwilio, missing[ProviderTwilio])
}
