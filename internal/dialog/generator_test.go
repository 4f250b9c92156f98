package dialog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voxsell/voice-sales-agent/internal/domain"
)

func render(t *testing.T, resp interface{ Render() ([]byte, error) }) string {
	t.Helper()
	out, err := resp.Render()
	require.NoError(t, err)
	return string(out)
}

func TestGreetingReferencesLeadName(t *testing.T) {
	g := NewGenerator()
	lead := &domain.Lead{FirstName: "Priya", LastName: "Sharma"}
	out := render(t, g.Greeting(lead, "L1"))

	require.Contains(t, out, "Namaste Priya Sharma!")
	require.Contains(t, out, `action="/twilio/gather?lead_id=L1"`)
	require.Contains(t, out, `input="speech"`)
	// Fallback chain: retry prompt inside the gather, then close and hangup.
	require.Contains(t, out, "Aap kuch bol sakte hain?")
	require.Contains(t, out, "Thank you for your time. Goodbye!")
	require.Contains(t, out, "<Hangup>")
}

func TestGreetingFallsBackToGenericAddress(t *testing.T) {
	g := NewGenerator()
	out := render(t, g.Greeting(&domain.Lead{}, "L1"))
	require.Contains(t, out, "Namaste Sir/Madam!")
}

func TestFollowUpSpeaksQuestion(t *testing.T) {
	g := NewGenerator()
	out := render(t, g.FollowUp("L1", "What is your budget?"))
	require.Contains(t, out, "What is your budget?")
	require.Contains(t, out, `action="/twilio/gather?lead_id=L1"`)
}

func TestFollowUpDefaultQuestion(t *testing.T) {
	g := NewGenerator()
	out := render(t, g.FollowUp("L1", ""))
	require.Contains(t, out, "Kya aap mujhe aur detail de sakte hain?")
}

func TestFinalMessages(t *testing.T) {
	g := NewGenerator()

	qualified := render(t, g.Final(domain.ResultQualified))
	require.Contains(t, qualified, "Aap qualify ho gaye hain")
	require.Contains(t, qualified, "<Hangup>")
	require.False(t, strings.Contains(qualified, "<Gather"))

	disqualified := render(t, g.Final(domain.ResultDisqualified))
	require.Contains(t, disqualified, "future mein contact kar sakta hai")

	// Unknown verdicts close politely rather than celebrating.
	unknown := render(t, g.Final(domain.ResultUnknown))
	require.Contains(t, unknown, "future mein contact kar sakta hai")
}

func TestErrorResponseEndsCall(t *testing.T) {
	g := NewGenerator()
	out := render(t, g.Error("lead information not found"))
	require.Contains(t, out, "Sorry, lead information not found. Please try again later.")
	require.Contains(t, out, "<Hangup>")
}
