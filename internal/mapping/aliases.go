package mapping

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical field names understood by the mapper.
const (
	FieldFirstName             = "firstName"
	FieldLastName              = "lastName"
	FieldPhone                 = "phone"
	FieldEmail                 = "email"
	FieldAddress               = "address"
	FieldCity                  = "city"
	FieldPostalCode            = "postalCode"
	FieldDateOfBirth           = "dateOfBirth"
	FieldEmergencyContactName  = "emergencyContactName"
	FieldEmergencyContactPhone = "emergencyContactPhone"
	FieldHealthCardNumber      = "healthCardNumber"
	FieldAppointmentDateTime   = "appointmentDateTime"
	FieldConsentGiven          = "consentGiven"
	FieldAppointmentBooked     = "appointmentBooked"
	FieldReasonForCall         = "reasonForCall"
	FieldMinorAilment          = "minorAilment"
	FieldPrimarySymptom        = "primarySymptom"
)

// CanonicalFields lists every canonical field in a stable order.
var CanonicalFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldPhone,
	FieldEmail,
	FieldAddress,
	FieldCity,
	FieldPostalCode,
	FieldDateOfBirth,
	FieldEmergencyContactName,
	FieldEmergencyContactPhone,
	FieldHealthCardNumber,
	FieldAppointmentDateTime,
	FieldConsentGiven,
	FieldAppointmentBooked,
	FieldReasonForCall,
	FieldMinorAilment,
	FieldPrimarySymptom,
}

// AliasVersion identifies the built-in alias table.
const AliasVersion = "v1"

// AliasTable maps a canonical field to the raw keys that may carry it, highest
// priority first.
type AliasTable map[string][]string

// DefaultAliases returns a fresh copy of the built-in table. The agent's
// post-call analysis has shipped snake_case, Title Case and camelCase keys at
// different times, so each field accepts all three.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldFirstName:             {"first_name", "First Name", "firstName", "patient_first_name"},
		FieldLastName:              {"last_name", "Last Name", "lastName", "patient_last_name"},
		FieldPhone:                 {"phone_number", "Phone Number", "phone", "phoneNumber", "callback_number"},
		FieldEmail:                 {"email", "Email", "email_address", "Email Address"},
		FieldAddress:               {"address", "Address", "street_address", "Street Address"},
		FieldCity:                  {"city", "City"},
		FieldPostalCode:            {"postal_code", "Postal Code", "postalCode", "zip_code", "zip"},
		FieldDateOfBirth:           {"date_of_birth", "Date of Birth", "dateOfBirth", "dob", "DOB"},
		FieldEmergencyContactName:  {"emergency_contact_name", "Emergency Contact Name", "emergencyContactName"},
		FieldEmergencyContactPhone: {"emergency_contact_phone", "Emergency Contact Phone", "emergencyContactPhone", "emergency_contact_number"},
		FieldHealthCardNumber:      {"health_card_number", "Health Card Number", "healthCardNumber", "msp_number", "MSP Number", "phn"},
		FieldAppointmentDateTime:   {"appointment_date_time", "Appointment Date/Time", "appointment_datetime", "appointmentDateTime", "appointment_time", "Appointment Date Time"},
		FieldConsentGiven:          {"consent_given", "Consent Given", "consentGiven", "consent"},
		FieldAppointmentBooked:     {"appointment_booked", "Appointment Booked", "appointmentBooked", "booked"},
		FieldReasonForCall:         {"reason_for_call", "Reason For Call", "Reason for Call", "reasonForCall", "call_reason"},
		FieldMinorAilment:          {"minor_ailment", "Minor Ailment", "minorAilment", "ailment"},
		FieldPrimarySymptom:        {"primary_symptom", "Primary Symptom", "primarySymptom", "main_symptom", "symptom"},
	}
}

// Merge returns a copy of t where every field present in override replaces the
// corresponding variant list.
func (t AliasTable) Merge(override AliasTable) AliasTable {
	out := make(AliasTable, len(t)+len(override))
	for field, keys := range t {
		out[field] = append([]string(nil), keys...)
	}
	for field, keys := range override {
		if len(keys) == 0 {
			continue
		}
		out[field] = append([]string(nil), keys...)
	}
	return out
}

// Validate rejects tables that name unknown canonical fields.
func (t AliasTable) Validate() error {
	known := make(map[string]bool, len(CanonicalFields))
	for _, f := range CanonicalFields {
		known[f] = true
	}
	for field, keys := range t {
		if !known[field] {
			return fmt.Errorf("mapping: unknown canonical field %q", field)
		}
		for _, k := range keys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("mapping: blank alias for %q", field)
			}
		}
	}
	return nil
}

type aliasFile struct {
	Version string     `yaml:"version"`
	Aliases AliasTable `yaml:"aliases"`
}

// LoadAliasFile reads a YAML alias override and merges it over DefaultAliases.
//
//	version: v2
//	aliases:
//	  firstName: ["given_name", "first_name"]
func LoadAliasFile(path string) (AliasTable, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("mapping: read alias file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes YAML alias overrides. It returns the merged table and
// the version declared in the document (AliasVersion when omitted).
func ParseAliases(data []byte) (AliasTable, string, error) {
	var doc aliasFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("mapping: decode alias file: %w", err)
	}
	if err := doc.Aliases.Validate(); err != nil {
		return nil, "", err
	}
	version := strings.TrimSpace(doc.Version)
	if version == "" {
		version = AliasVersion
	}
	return DefaultAliases().Merge(doc.Aliases), version, nil
}
