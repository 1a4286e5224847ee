// Package notify decides whether an analyzed call warrants a confirmation text
// and renders it. Delivery is left to a Messenger.
package notify

import (
	"strings"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonReady        Reason = "ready"
	ReasonNotBooked    Reason = "not_booked"
	ReasonMissingPhone Reason = "missing_phone"
	ReasonInvalidPhone Reason = "invalid_phone"
	ReasonRenderFailed Reason = "render_failed"
)

// Pharmacy holds the statically configured values substituted into messages.
type Pharmacy struct {
	Name     string
	Location string
	Phone    string
}

// Message is the payload handed to the messaging collaborator.
type Message struct {
	DestinationPhone string `json:"destinationPhone"`
	Body             string `json:"body"`
	CallID           string `json:"callId,omitempty"`
}

// Decision is the outcome of inspecting a completed record.
type Decision struct {
	Send    bool
	Reason  Reason
	Message Message
	Err     error
}

const confirmationTemplate = `Hi {{.Name}},

Your pharmacy appointment is confirmed for {{.DateTime}}.
Location: {{.Location}}

Please bring:
- Government ID
- Health card: {{.HealthCard}}
- Medication list

Questions? Call {{.PharmacyPhone}}

- {{.PharmacyName}}
Ref: {{.CallID}}`

const (
	placeholderName       = "there"
	placeholderDateTime   = "your requested time"
	placeholderLocation   = "our pharmacy"
	placeholderHealthCard = "not on file, please bring your card"
	placeholderPhone      = "the pharmacy"
)

type confirmationData struct {
	Name          string
	DateTime      string
	Location      string
	HealthCard    string
	PharmacyPhone string
	PharmacyName  string
	CallID        string
}

// Decider renders confirmation texts for booked appointments.
type Decider struct {
	pharmacy Pharmacy
	renderer Renderer
}

// NewDecider returns a Decider using the given pharmacy details.
func NewDecider(p Pharmacy) *Decider {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = "MedMe Health"
	}
	return &Decider{pharmacy: p}
}

// Decide inspects rec. Only booked appointments with a usable phone number
// produce a message; every other outcome carries the reason it was skipped.
func (d *Decider) Decide(rec *consultation.Record) Decision {
	if rec == nil || !rec.Appointment.Booked {
		return Decision{Reason: ReasonNotBooked}
	}
	if strings.TrimSpace(rec.Contact.Phone) == "" {
		return Decision{Reason: ReasonMissingPhone}
	}
	phone, ok := FormatPhone(rec.Contact.Phone)
	if !ok {
		return Decision{Reason: ReasonInvalidPhone}
	}

	body, err := d.renderer.Render("confirmation", confirmationTemplate, confirmationData{
		Name:          orDefault(rec.Contact.FullName(), placeholderName),
		DateTime:      orDefault(rec.Appointment.DateTime, placeholderDateTime),
		Location:      orDefault(d.pharmacy.Location, placeholderLocation),
		HealthCard:    orDefault(rec.Contact.HealthCardNumber, placeholderHealthCard),
		PharmacyPhone: orDefault(d.pharmacy.Phone, placeholderPhone),
		PharmacyName:  d.pharmacy.Name,
		CallID:        rec.CallMeta.CallID,
	})
	if err != nil {
		return Decision{Reason: ReasonRenderFailed, Err: err}
	}
	return Decision{
		Send:   true,
		Reason: ReasonReady,
		Message: Message{
			DestinationPhone: phone,
			Body:             body,
			CallID:           rec.CallMeta.CallID,
		},
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
