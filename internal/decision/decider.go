// Package decision turns a transcribed utterance into the next dialogue
// move: either a follow-up question or a terminal qualification verdict.
// The model behind it is opaque to the rest of the service.
package decision

import (
	"context"

	"github.com/voxsell/voice-sales-agent/internal/domain"
)

// Decider is the decision-function collaborator consumed by the webhook
// dispatcher.
type Decider interface {
	// Decide processes the lead's latest utterance against the full
	// conversation state.
	Decide(ctx context.Context, leadID, utterance string, state *domain.ConversationState) (domain.Decision, error)

	// DecideFinal produces a terminal verdict from whatever partial
	// history exists. Used when the call ends before the dialogue
	// reached a natural final turn.
	DecideFinal(ctx context.Context, leadID string, state *domain.ConversationState) (domain.Decision, error)
}
