// Package dialog builds the spoken TwiML for each step of the
// qualification call: greeting, follow-up questions, terminal messages
// and the safe-degrade error response.
package dialog

import (
	"fmt"

	"github.com/voxsell/voice-sales-agent/internal/domain"
	"github.com/voxsell/voice-sales-agent/internal/twiml"
)

// Single fixed voice configuration for all spoken content.
const (
	voice    = "Polly.Aditi"
	language = "hi-IN"
)

const (
	gatherRetryPrompt   = "Aap kuch bol sakte hain?"
	closingLine         = "Thank you for your time. Goodbye!"
	qualifiedMessage    = "Bahut achha! Aap qualify ho gaye hain. Hamara team aapko contact karega. Thank you!"
	disqualifiedMessage = "Thank you for your time. Hamara team aapko future mein contact kar sakta hai. Goodbye!"
	defaultNextQuestion = "Kya aap mujhe aur detail de sakte hain?"
)

// Generator produces the outbound dialogue turns.
type Generator struct{}

// NewGenerator creates a dialogue-response generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Greeting opens the call: greet the lead by name, ask for two minutes,
// and open a speech-capture window. If no speech arrives Twilio falls
// through to the retry prompt, then the polite close and hangup, so the
// call can never hang indefinitely.
func (g *Generator) Greeting(lead *domain.Lead, leadID string) *twiml.Response {
	greeting := fmt.Sprintf("Namaste %s! Main aapko call kar raha hoon. Kya aap mujhe 2 minute de sakte hain?", lead.DisplayName())

	resp := &twiml.Response{}
	resp.Say(greeting, voice, language)
	resp.Gather(g.speechGather(leadID))
	resp.Say(closingLine, voice, language)
	resp.Hangup()
	return resp
}

// FollowUp speaks the next question and reopens the speech-capture window
// with the same fallback chain as the greeting.
func (g *Generator) FollowUp(leadID, question string) *twiml.Response {
	if question == "" {
		question = defaultNextQuestion
	}

	resp := &twiml.Response{}
	resp.Say(question, voice, language)
	resp.Gather(g.speechGather(leadID))
	resp.Say(closingLine, voice, language)
	resp.Hangup()
	return resp
}

// Final speaks the closing message for the verdict and ends the call.
func (g *Generator) Final(result domain.QualificationResult) *twiml.Response {
	message := disqualifiedMessage
	if result == domain.ResultQualified {
		message = qualifiedMessage
	}

	resp := &twiml.Response{}
	resp.Say(message, voice, language)
	resp.Hangup()
	return resp
}

// Error speaks a generic apology and ends the call. The provider must
// always receive well-formed TwiML, never a raw fault.
func (g *Generator) Error(message string) *twiml.Response {
	resp := &twiml.Response{}
	resp.Say(fmt.Sprintf("Sorry, %s. Please try again later.", message), voice, language)
	resp.Hangup()
	return resp
}

func (g *Generator) speechGather(leadID string) twiml.Gather {
	gather := twiml.Gather{
		Input:         "speech",
		Language:      language,
		SpeechTimeout: "auto",
		Action:        "/twilio/gather?lead_id=" + leadID,
		Method:        "POST",
	}
	gather.Say(gatherRetryPrompt, voice, language)
	return gather
}
