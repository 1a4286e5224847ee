// Package mapping folds the call platform's loosely keyed custom analysis data
// into a consultation record through a versioned alias table.
package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
)

// Fields holds resolved canonical values as strings.
type Fields map[string]string

// Get returns the value for a canonical field, or "" when unresolved.
func (f Fields) Get(field string) string {
	return f[field]
}

// Has reports whether the canonical field resolved to a non-empty value.
func (f Fields) Has(field string) bool {
	return f[field] != ""
}

// Mapper resolves canonical fields from raw analysis data. It is immutable
// after construction.
type Mapper struct {
	aliases AliasTable
	version string
}

// NewMapper builds a mapper over aliases. A nil table uses DefaultAliases.
func NewMapper(aliases AliasTable, version string) *Mapper {
	if aliases == nil {
		aliases = DefaultAliases()
		version = AliasVersion
	}
	if strings.TrimSpace(version) == "" {
		version = AliasVersion
	}
	return &Mapper{aliases: aliases.Merge(nil), version: version}
}

// Version reports the alias table version in use.
func (m *Mapper) Version() string {
	return m.version
}

// Lookup finds the raw value for field. Exact key variants are tried in
// priority order first; failing that, keys are compared with case and
// punctuation removed. It returns the matched raw key as well.
func (m *Mapper) Lookup(data map[string]any, field string) (any, string, bool) {
	if len(data) == 0 {
		return nil, "", false
	}
	variants := m.aliases[field]
	for _, key := range variants {
		if v, ok := data[key]; ok && !isBlank(v) {
			return v, key, true
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, variant := range variants {
		want := normalizeKey(variant)
		for _, k := range keys {
			if normalizeKey(k) == want && !isBlank(data[k]) {
				return data[k], k, true
			}
		}
	}
	return nil, "", false
}

// Resolve stringifies every canonical field present in data.
func (m *Mapper) Resolve(data map[string]any) Fields {
	out := Fields{}
	for _, field := range CanonicalFields {
		raw, _, ok := m.Lookup(data, field)
		if !ok {
			continue
		}
		if s, ok := Stringify(raw); ok {
			out[field] = s
		}
	}
	return out
}

// Apply copies resolved fields into rec. data is kept verbatim in
// Analysis.RawCustomData. callerPhone fills contact.phone when the payload has
// none. A nil payload leaves the record at its defaults apart from the phone.
func (m *Mapper) Apply(rec *consultation.Record, data map[string]any, callerPhone string) Fields {
	fields := m.Resolve(data)
	if rec == nil {
		return fields
	}

	raw := make(map[string]any, len(data))
	for k, v := range data {
		raw[k] = v
	}
	rec.Analysis.RawCustomData = raw

	c := &rec.Contact
	setIfEmpty(&c.FirstName, fields.Get(FieldFirstName))
	setIfEmpty(&c.LastName, fields.Get(FieldLastName))
	setIfEmpty(&c.Phone, fields.Get(FieldPhone))
	setIfEmpty(&c.Phone, strings.TrimSpace(callerPhone))
	setIfEmpty(&c.Email, fields.Get(FieldEmail))
	setIfEmpty(&c.Address, fields.Get(FieldAddress))
	setIfEmpty(&c.City, fields.Get(FieldCity))
	setIfEmpty(&c.PostalCode, fields.Get(FieldPostalCode))
	setIfEmpty(&c.DateOfBirth, fields.Get(FieldDateOfBirth))
	setIfEmpty(&c.EmergencyContactName, fields.Get(FieldEmergencyContactName))
	setIfEmpty(&c.EmergencyContactPhone, fields.Get(FieldEmergencyContactPhone))
	setIfEmpty(&c.HealthCardNumber, fields.Get(FieldHealthCardNumber))

	setIfEmpty(&rec.Consultation.ReasonForCall, fields.Get(FieldReasonForCall))
	setIfEmpty(&rec.Consultation.MinorAilment, fields.Get(FieldMinorAilment))

	setIfEmpty(&rec.Appointment.DateTime, fields.Get(FieldAppointmentDateTime))
	if Truthy(fields.Get(FieldAppointmentBooked)) {
		rec.Appointment.Booked = true
	}
	if Truthy(fields.Get(FieldConsentGiven)) {
		rec.Appointment.ConsentGiven = true
	}

	rec.Symptoms.SetPrimaryCondition(fields.Get(FieldPrimarySymptom))
	return fields
}

// Truthy treats boolean true and the string "true" (any case, surrounding
// space ignored) as true. Upstream has sent appointment_booked both ways.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// Stringify renders a decoded JSON value as a scalar string. It reports false
// for nil and for values that are empty after trimming.
func Stringify(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = strings.TrimSpace(t)
	case bool:
		s = strconv.FormatBool(t)
	case float64:
		s = formatFloat(t)
	case float32:
		s = formatFloat(float64(t))
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case json.Number:
		s = t.String()
	case fmt.Stringer:
		s = strings.TrimSpace(t.String())
	default:
		data, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprintf("%v", t)
		} else {
			s = string(data)
		}
	}
	return s, s != ""
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}
