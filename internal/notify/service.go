package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// StaffAlerter emails pharmacy staff when a patient books through the agent.
type StaffAlerter struct {
	email      EmailSender
	recipients []string
	pharmacy   Pharmacy
	renderer   Renderer
	logger     *logging.Logger
}

// NewStaffAlerter returns nil when no sender or recipient is configured so
// callers can treat staff alerts as optional.
func NewStaffAlerter(email EmailSender, recipients []string, pharmacy Pharmacy, logger *logging.Logger) *StaffAlerter {
	var to []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if email == nil || len(to) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StaffAlerter{
		email:      email,
		recipients: to,
		pharmacy:   pharmacy,
		logger:     logger,
	}
}

const staffAlertTemplate = `A patient booked a pharmacy consultation through the voice agent.

Patient: {{.Name}}
Phone: {{.Phone}}
Appointment: {{.DateTime}}
Reason: {{.Reason}}
Primary condition: {{.Condition}}
Severity: {{.Severity}}
Duration: {{.Duration}}
Other symptoms: {{.Symptoms}}
Medications tried: {{.Medications}}

Summary:
{{.Summary}}

Call ID: {{.CallID}}
- {{.PharmacyName}} intake`

type staffAlertData struct {
	Name         string
	Phone        string
	DateTime     string
	Reason       string
	Condition    string
	Severity     string
	Duration     string
	Symptoms     string
	Medications  string
	Summary      string
	CallID       string
	PharmacyName string
}

// NotifyBooked emails every configured recipient. Failures are joined so one
// bad address does not hide the others.
func (s *StaffAlerter) NotifyBooked(ctx context.Context, rec *consultation.Record) error {
	if s == nil || rec == nil || !rec.Appointment.Booked {
		return nil
	}

	name := orDefault(rec.Contact.FullName(), "Unknown patient")
	severity := ""
	if rec.Symptoms.Severity != nil {
		severity = fmt.Sprintf("%d/10", *rec.Symptoms.Severity)
	}
	body, err := s.renderer.Render("staff_alert", staffAlertTemplate, staffAlertData{
		Name:         name,
		Phone:        orDefault(rec.Contact.Phone, "-"),
		DateTime:     orDefault(rec.Appointment.DateTime, "-"),
		Reason:       orDefault(firstNonBlank(rec.Consultation.ReasonForCall, rec.Consultation.MinorAilment), "-"),
		Condition:    orDefault(rec.Symptoms.PrimaryCondition, "-"),
		Severity:     orDefault(severity, "-"),
		Duration:     orDefault(rec.Symptoms.Duration, "-"),
		Symptoms:     orDefault(rec.Symptoms.AdditionalSymptoms.Join(", "), "-"),
		Medications:  orDefault(rec.Symptoms.MedicationsTaken.Join(", "), "-"),
		Summary:      orDefault(rec.Analysis.Summary, "-"),
		CallID:       rec.CallMeta.CallID,
		PharmacyName: orDefault(s.pharmacy.Name, "Pharmacy"),
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("New consultation booked - %s", name)
	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{To: recipient, Subject: subject, Body: body}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send staff alert", "error", err, "to", recipient, "call_id", rec.CallMeta.CallID)
			errs = append(errs, fmt.Errorf("notify: staff alert to %s: %w", recipient, err))
			continue
		}
		s.logger.Info("notify: staff alert sent", "to", recipient, "call_id", rec.CallMeta.CallID)
	}
	return errors.Join(errs...)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
