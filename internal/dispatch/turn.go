package dispatch

import "strings"

// Intents understood by RespondToTurn.
const (
	IntentAssessSymptoms     = "ASSESS_SYMPTOMS"
	IntentBookPharmacy       = "BOOK_PHARMACY"
	IntentMedicationReminder = "MEDICATION_REMINDER"
	IntentFollowUp           = "FOLLOW_UP"
)

// TurnResponse is returned for interactive turn requests.
type TurnResponse struct {
	Response string       `json:"response"`
	Metadata TurnMetadata `json:"metadata"`
}

// TurnMetadata tells the agent which conversation stage it is in.
type TurnMetadata struct {
	Stage string `json:"stage"`
}

var turnResponses = map[string]TurnResponse{
	IntentAssessSymptoms: {
		Response: "I understand you're not feeling well. Let me ask you a few questions to better understand your symptoms. What symptoms are you experiencing?",
		Metadata: TurnMetadata{Stage: "initial_assessment"},
	},
	IntentBookPharmacy: {
		Response: "I'll help you book an appointment at the pharmacy. What time would work best for you?",
		Metadata: TurnMetadata{Stage: "booking"},
	},
	IntentMedicationReminder: {
		Response: "I can help you set up medication reminders. How often do you need to take your medication?",
		Metadata: TurnMetadata{Stage: "reminder_setup"},
	},
	IntentFollowUp: {
		Response: "How have you been feeling since your last pharmacy visit?",
		Metadata: TurnMetadata{Stage: "follow_up"},
	},
}

var defaultTurn = TurnResponse{
	Response: "I'm here to help with your healthcare needs. Would you like to book an appointment, set up medication reminders, or discuss your symptoms?",
	Metadata: TurnMetadata{Stage: "initial"},
}

// RespondToTurn returns the fixed reply for intent.
func RespondToTurn(intent string) TurnResponse {
	if resp, ok := turnResponses[strings.ToUpper(strings.TrimSpace(intent))]; ok {
		return resp
	}
	return defaultTurn
}
