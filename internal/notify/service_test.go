package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	sent   []EmailMessage
	failOn string
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNewStaffAlerter_Optional(t *testing.T) {
	assert.Nil(t, NewStaffAlerter(nil, []string{"a@example.com"}, Pharmacy{}, nil))
	assert.Nil(t, NewStaffAlerter(&mockEmailSender{}, []string{" ", ""}, Pharmacy{}, nil))

	var s *StaffAlerter
	assert.NoError(t, s.NotifyBooked(context.Background(), bookedRecord()))
}

func TestStaffAlerter_NotifyBooked(t *testing.T) {
	email := &mockEmailSender{}
	s := NewStaffAlerter(email, []string{"a@example.com", "b@example.com"}, Pharmacy{Name: "Main St Pharmacy"}, nil)
	require.NotNil(t, s)

	rec := bookedRecord()
	sev := 7
	rec.Symptoms.Severity = &sev
	rec.Symptoms.AddSymptom("Migraine")
	rec.Symptoms.AddSymptom("Nausea")
	rec.Symptoms.MedicationsTaken.Add("Advil")
	rec.Analysis.Summary = "Caller booked a consult."

	require.NoError(t, s.NotifyBooked(context.Background(), rec))
	require.Len(t, email.sent, 2)
	msg := email.sent[0]
	assert.Equal(t, "New consultation booked - Jane Doe", msg.Subject)
	assert.Contains(t, msg.Body, "Severity: 7/10")
	assert.Contains(t, msg.Body, "Other symptoms: Migraine, Nausea")
	assert.Contains(t, msg.Body, "Medications tried: Advil")
	assert.Contains(t, msg.Body, "Call ID: call_123")
	assert.Contains(t, msg.Body, "- Main St Pharmacy intake")
}

func TestStaffAlerter_SkipsUnbooked(t *testing.T) {
	email := &mockEmailSender{}
	s := NewStaffAlerter(email, []string{"a@example.com"}, Pharmacy{}, nil)
	rec := bookedRecord()
	rec.Appointment.Booked = false

	require.NoError(t, s.NotifyBooked(context.Background(), rec))
	assert.Empty(t, email.sent)
}

func TestStaffAlerter_PartialFailure(t *testing.T) {
	email := &mockEmailSender{failOn: "a@example.com"}
	s := NewStaffAlerter(email, []string{"a@example.com", "b@example.com"}, Pharmacy{}, nil)

	err := s.NotifyBooked(context.Background(), bookedRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@example.com")
	assert.Len(t, email.sent, 1)
}
