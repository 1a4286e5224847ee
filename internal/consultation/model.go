// Package consultation holds the normalized record produced for every analyzed
// call, along with the fixed row layout handed to spreadsheet persistence.
package consultation

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by stores when no record exists for a call id.
var ErrNotFound = errors.New("consultation: record not found")

// CallMeta identifies the call a record was built from. It is copied from the
// envelope once and never changed afterwards.
type CallMeta struct {
	CallID         string `json:"callId"`
	StartTimestamp int64  `json:"startTimestamp"`
	DurationMs     int64  `json:"durationMs"`
}

// Contact carries person-identifying fields. Empty strings mean absent.
type Contact struct {
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	Phone                 string `json:"phone"`
	Email                 string `json:"email"`
	Address               string `json:"address"`
	City                  string `json:"city"`
	PostalCode            string `json:"postalCode"`
	DateOfBirth           string `json:"dateOfBirth"`
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`
	HealthCardNumber      string `json:"healthCardNumber"`
}

// FullName joins first and last name, skipping blanks.
func (c Contact) FullName() string {
	return strings.TrimSpace(strings.Join(strings.Fields(c.FirstName+" "+c.LastName), " "))
}

// Consultation is why the patient called.
type Consultation struct {
	ReasonForCall string `json:"reasonForCall"`
	MinorAilment  string `json:"minorAilment"`
}

// Appointment captures booking outcome fields supplied by call analysis.
type Appointment struct {
	DateTime     string `json:"dateTime"`
	Booked       bool   `json:"booked"`
	ConsentGiven bool   `json:"consentGiven"`
}

// Symptoms is filled by the structured mapper and the transcript extractor.
// The scalar fields are first-write-wins: use the Set* helpers.
type Symptoms struct {
	PrimaryCondition   string `json:"primaryCondition"`
	Severity           *int   `json:"severity"`
	Duration           string `json:"duration"`
	Location           string `json:"location"`
	AdditionalSymptoms Labels `json:"additionalSymptoms"`
	MedicationsTaken   Labels `json:"medicationsTaken"`
}

// SetPrimaryCondition sets the primary condition if it is still empty.
func (s *Symptoms) SetPrimaryCondition(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || s.PrimaryCondition != "" {
		return false
	}
	s.PrimaryCondition = value
	return true
}

// SetSeverity records the severity if none has been recorded.
func (s *Symptoms) SetSeverity(value int) bool {
	if s.Severity != nil {
		return false
	}
	s.Severity = &value
	return true
}

// SetDuration records the duration if none has been recorded.
func (s *Symptoms) SetDuration(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || s.Duration != "" {
		return false
	}
	s.Duration = value
	return true
}

// SetLocation records the body location if none has been recorded.
func (s *Symptoms) SetLocation(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || s.Location != "" {
		return false
	}
	s.Location = value
	return true
}

// AddSymptom appends a canonical label. The first label ever added becomes the
// primary condition unless one was already set.
func (s *Symptoms) AddSymptom(label string) bool {
	if !s.AdditionalSymptoms.Add(label) {
		return false
	}
	s.SetPrimaryCondition(label)
	return true
}

// Analysis is the call platform's own post-call analysis.
type Analysis struct {
	Summary        string         `json:"summary"`
	Sentiment      string         `json:"sentiment"`
	Successful     *bool          `json:"successful"`
	TaskCompletion string         `json:"taskCompletion"`
	RawCustomData  map[string]any `json:"rawCustomData"`
}

// Record is the normalized consultation built from one analyzed call.
type Record struct {
	CallMeta     CallMeta     `json:"callMeta"`
	Contact      Contact      `json:"contact"`
	Consultation Consultation `json:"consultation"`
	Appointment  Appointment  `json:"appointment"`
	Symptoms     Symptoms     `json:"symptoms"`
	Analysis     Analysis     `json:"analysis"`
}

// New returns a record with every optional field at its absent marker.
func New(callID string) *Record {
	return &Record{
		CallMeta: CallMeta{CallID: strings.TrimSpace(callID)},
		Symptoms: Symptoms{
			AdditionalSymptoms: NewLabels(),
			MedicationsTaken:   NewLabels(),
		},
		Analysis: Analysis{
			RawCustomData: map[string]any{},
		},
	}
}
