package consultation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type column struct {
	header string
	value  func(*Record) string
}

// columns is the documented row layout. Appending is safe; reordering breaks
// every spreadsheet that already holds rows.
var columns = []column{
	{"Timestamp", func(r *Record) string { return formatEpochMillis(r.CallMeta.StartTimestamp) }},
	{"Call ID", func(r *Record) string { return r.CallMeta.CallID }},
	{"Call Duration (ms)", func(r *Record) string { return formatInt64(r.CallMeta.DurationMs) }},
	{"Phone Number", func(r *Record) string { return r.Contact.Phone }},
	{"First Name", func(r *Record) string { return r.Contact.FirstName }},
	{"Last Name", func(r *Record) string { return r.Contact.LastName }},
	{"Email", func(r *Record) string { return r.Contact.Email }},
	{"Address", func(r *Record) string { return r.Contact.Address }},
	{"City", func(r *Record) string { return r.Contact.City }},
	{"Postal Code", func(r *Record) string { return r.Contact.PostalCode }},
	{"Date of Birth", func(r *Record) string { return r.Contact.DateOfBirth }},
	{"Emergency Contact Name", func(r *Record) string { return r.Contact.EmergencyContactName }},
	{"Emergency Contact Phone", func(r *Record) string { return r.Contact.EmergencyContactPhone }},
	{"Health Card Number", func(r *Record) string { return r.Contact.HealthCardNumber }},
	{"Reason For Call", func(r *Record) string { return r.Consultation.ReasonForCall }},
	{"Minor Ailment", func(r *Record) string { return r.Consultation.MinorAilment }},
	{"Appointment Date/Time", func(r *Record) string { return r.Appointment.DateTime }},
	{"Appointment Booked", func(r *Record) string { return strconv.FormatBool(r.Appointment.Booked) }},
	{"Consent Given", func(r *Record) string { return strconv.FormatBool(r.Appointment.ConsentGiven) }},
	{"Primary Condition", func(r *Record) string { return r.Symptoms.PrimaryCondition }},
	{"Severity", func(r *Record) string { return formatIntPtr(r.Symptoms.Severity) }},
	{"Duration", func(r *Record) string { return r.Symptoms.Duration }},
	{"Location", func(r *Record) string { return r.Symptoms.Location }},
	{"Additional Symptoms", func(r *Record) string { return r.Symptoms.AdditionalSymptoms.Join(", ") }},
	{"Medications", func(r *Record) string { return r.Symptoms.MedicationsTaken.Join(", ") }},
	{"Sentiment", func(r *Record) string { return r.Analysis.Sentiment }},
	{"Success", func(r *Record) string { return formatBoolPtr(r.Analysis.Successful) }},
	{"Task Completion", func(r *Record) string { return r.Analysis.TaskCompletion }},
	{"Summary", func(r *Record) string { return r.Analysis.Summary }},
	{"Custom Data", func(r *Record) string { return formatJSON(r.Analysis.RawCustomData) }},
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c.header] = i
	}
	return idx
}()

// Headers returns the column headers in row order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// ColumnIndex returns the zero-based position of header in a row.
func ColumnIndex(header string) (int, bool) {
	i, ok := columnIndex[header]
	return i, ok
}

// Row renders the record as one scalar string per header. The result always
// has len(Headers()) entries.
func (r *Record) Row() []string {
	row := make([]string, len(columns))
	if r == nil {
		return row
	}
	for i, c := range columns {
		row[i] = c.value(r)
	}
	return row
}

// RowMap pairs every header with its rendered value.
func (r *Record) RowMap() map[string]string {
	row := r.Row()
	out := make(map[string]string, len(row))
	for i, c := range columns {
		out[c.header] = row[i]
	}
	return out
}

func formatEpochMillis(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func formatInt64(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatBoolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func formatJSON(v map[string]any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
