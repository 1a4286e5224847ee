package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
)

func bookedRecord() *consultation.Record {
	rec := consultation.New("call_123")
	rec.Contact.FirstName = "Jane"
	rec.Contact.LastName = "Doe"
	rec.Contact.Phone = "(555) 123-4567"
	rec.Appointment.Booked = true
	rec.Appointment.DateTime = "2024-03-01 10:00"
	return rec
}

func TestDecide_Reasons(t *testing.T) {
	d := NewDecider(Pharmacy{Name: "Main St Pharmacy", Location: "12 Main St", Phone: "555-000-1111"})

	tests := []struct {
		name   string
		mutate func(*consultation.Record)
		want   Reason
		send   bool
	}{
		{"ready", func(*consultation.Record) {}, ReasonReady, true},
		{"not booked", func(r *consultation.Record) { r.Appointment.Booked = false }, ReasonNotBooked, false},
		{"missing phone", func(r *consultation.Record) { r.Contact.Phone = "  " }, ReasonMissingPhone, false},
		{"invalid phone", func(r *consultation.Record) { r.Contact.Phone = "123" }, ReasonInvalidPhone, false},
		{"booked wins over phone checks", func(r *consultation.Record) {
			r.Appointment.Booked = false
			r.Contact.Phone = ""
		}, ReasonNotBooked, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := bookedRecord()
			tt.mutate(rec)
			dec := d.Decide(rec)
			assert.Equal(t, tt.want, dec.Reason)
			assert.Equal(t, tt.send, dec.Send)
			if !tt.send {
				assert.Empty(t, dec.Message.Body)
			}
		})
	}
}

func TestDecide_NilRecord(t *testing.T) {
	dec := NewDecider(Pharmacy{}).Decide(nil)
	assert.False(t, dec.Send)
	assert.Equal(t, ReasonNotBooked, dec.Reason)
}

func TestDecide_MessageBody(t *testing.T) {
	d := NewDecider(Pharmacy{Name: "Main St Pharmacy", Location: "12 Main St", Phone: "555-000-1111"})
	rec := bookedRecord()
	rec.Contact.HealthCardNumber = "1234-567-890"

	dec := d.Decide(rec)
	require.True(t, dec.Send)
	assert.Equal(t, "+15551234567", dec.Message.DestinationPhone)
	assert.Equal(t, "call_123", dec.Message.CallID)

	body := dec.Message.Body
	for _, want := range []string{
		"Hi Jane Doe,",
		"confirmed for 2024-03-01 10:00",
		"Location: 12 Main St",
		"- Government ID",
		"- Health card: 1234-567-890",
		"- Medication list",
		"Questions? Call 555-000-1111",
		"- Main St Pharmacy",
		"Ref: call_123",
	} {
		assert.Contains(t, body, want)
	}
}

func TestDecide_Placeholders(t *testing.T) {
	d := NewDecider(Pharmacy{})
	rec := consultation.New("call_9")
	rec.Appointment.Booked = true
	rec.Contact.Phone = "5551234567"

	dec := d.Decide(rec)
	require.True(t, dec.Send)
	body := dec.Message.Body
	assert.True(t, strings.HasPrefix(body, "Hi there,"))
	assert.Contains(t, body, "confirmed for your requested time")
	assert.Contains(t, body, "Location: our pharmacy")
	assert.Contains(t, body, "Health card: "+placeholderHealthCard)
	assert.Contains(t, body, "Questions? Call the pharmacy")
	assert.Contains(t, body, "- MedMe Health")
}
