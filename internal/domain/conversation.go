package domain

import "time"

// DialogueStep is the position of a conversation in the qualification flow.
type DialogueStep string

const (
	StepGreeting         DialogueStep = "greeting"
	StepAwaitingResponse DialogueStep = "awaiting_response"
	StepCompleted        DialogueStep = "completed"
)

// Speaker attributes a turn to one side of the call.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is one utterance in the dialogue. Turns are append-only; insertion
// order is the chronological truth.
type Turn struct {
	Speaker    Speaker   `json:"speaker"`
	Text       string    `json:"text"`
	Confidence string    `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConversationState tracks one lead's in-progress call. CallSID correlates
// later status callbacks, which carry no lead identifier.
type ConversationState struct {
	LeadID    string       `json:"lead_id"`
	CallSID   string       `json:"call_sid"`
	Turns     []Turn       `json:"turns"`
	Step      DialogueStep `json:"step"`
	StartedAt time.Time    `json:"started_at"`
}

// QualificationResult is the terminal verdict for a lead.
type QualificationResult string

const (
	ResultQualified    QualificationResult = "qualified"
	ResultDisqualified QualificationResult = "disqualified"
	ResultUnknown      QualificationResult = "unknown"
)

// Decision is the outcome of one decision-function invocation: either a
// FollowUp (keep talking) or a FinalVerdict (close out the call).
type Decision interface {
	isDecision()
}

// FollowUp continues the dialogue with the next question to ask.
type FollowUp struct {
	NextQuestion string
}

func (FollowUp) isDecision() {}

// FinalVerdict concludes the dialogue and triggers the CRM write.
type FinalVerdict struct {
	Result  QualificationResult
	Summary string
	Reason  string
}

func (FinalVerdict) isDecision() {}
