package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Inbound webhook verification
	WebhookSecret  string
	WebhookMaxSkew time.Duration

	// Persistence
	EnableDataStorage         bool
	GoogleSheetsSpreadsheetID string
	GoogleSheetsCredentials   string
	GoogleSheetsTab           string
	DatabaseURL               string
	ArchiveBucket             string

	// Dedup cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DedupTTL      time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// SMS
	SMSProvider              string
	SMSFromNumber            string
	TelnyxAPIKey             string
	TelnyxMessagingProfileID string
	TwilioAccountSID         string
	TwilioAuthToken          string

	// Confirmation template values
	PharmacyName     string
	PharmacyLocation string
	PharmacyPhone    string

	// Staff alerts
	StaffAlertEmail   string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	AdminJWTSecret string

	// Extraction tuning
	AliasTablePath string
	DurationUnits  string

	// Call platform API
	RetellAPIKey  string
	RetellBaseURL string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "10000"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		WebhookMaxSkew: getEnvAsDuration("WEBHOOK_MAX_SKEW", 5*time.Minute),

		EnableDataStorage:         getEnvAsBool("ENABLE_DATA_STORAGE", true),
		GoogleSheetsSpreadsheetID: getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		GoogleSheetsCredentials:   getEnv("GOOGLE_SHEETS_CREDENTIALS", ""),
		GoogleSheetsTab:           getEnv("GOOGLE_SHEETS_TAB", "Sheet1"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		ArchiveBucket:             getEnv("ARCHIVE_BUCKET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DedupTTL:      getEnvAsDuration("DEDUP_TTL", 72*time.Hour),

		AWSRegion:           getEnv("AWS_REGION", "us-west-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SMSProvider:              strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "auto"))),
		SMSFromNumber:            getEnv("SMS_FROM_NUMBER", ""),
		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
		TwilioAccountSID:         getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:          getEnv("TWILIO_AUTH_TOKEN", ""),

		PharmacyName:     getEnv("PHARMACY_NAME", "MedMe Health"),
		PharmacyLocation: getEnv("PHARMACY_LOCATION", ""),
		PharmacyPhone:    getEnv("PHARMACY_PHONE", ""),

		StaffAlertEmail:   getEnv("STAFF_ALERT_EMAIL", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MedMe Health"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AliasTablePath: getEnv("ALIAS_TABLE_PATH", ""),
		DurationUnits:  strings.ToLower(strings.TrimSpace(getEnv("DURATION_UNITS", "all"))),

		RetellAPIKey:  getEnv("RETELL_API_KEY", ""),
		RetellBaseURL: getEnv("RETELL_BASE_URL", ""),
	}
}

// SheetsConfigured reports whether both spreadsheet identifiers are present.
func (c *Config) SheetsConfigured() bool {
	return strings.TrimSpace(c.GoogleSheetsSpreadsheetID) != "" && strings.TrimSpace(c.GoogleSheetsCredentials) != ""
}

// Validate reports misconfiguration that must stop the process at startup
// rather than surface on every webhook.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("config: PORT must be numeric, got %q", c.Port))
	}
	if c.EnableDataStorage {
		hasCreds := strings.TrimSpace(c.GoogleSheetsCredentials) != ""
		hasSheet := strings.TrimSpace(c.GoogleSheetsSpreadsheetID) != ""
		if hasCreds && !hasSheet {
			errs = append(errs, errors.New("config: GOOGLE_SHEETS_SPREADSHEET_ID is required when GOOGLE_SHEETS_CREDENTIALS is set"))
		}
		if hasSheet && !hasCreds {
			errs = append(errs, errors.New("config: GOOGLE_SHEETS_CREDENTIALS is required when GOOGLE_SHEETS_SPREADSHEET_ID is set"))
		}
	}
	switch c.DurationUnits {
	case "all", "hours", "months":
	default:
		errs = append(errs, fmt.Errorf("config: DURATION_UNITS must be one of all, hours, months; got %q", c.DurationUnits))
	}
	if c.StaffAlertEmail != "" && c.SendGridAPIKey == "" && c.SESFromEmail == "" {
		errs = append(errs, errors.New("config: STAFF_ALERT_EMAIL requires SENDGRID_API_KEY or SES_FROM_EMAIL"))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
