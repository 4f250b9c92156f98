// Package convstate holds the in-progress dialogue state for every lead
// currently mid-call. The dispatcher is the sole writer; the store's job
// is to make the terminal transition atomic so the CRM write happens at
// most once even when a final gather races a status-completed callback.
package convstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voxsell/voice-sales-agent/internal/domain"
)

// ErrNotFound is returned when no active conversation exists for a key.
var ErrNotFound = errors.New("conversation not found")

// Store is the conversation-state store consumed by the webhook dispatcher.
type Store interface {
	// GetOrCreate returns the active state for the lead, creating it at
	// step greeting when absent. The bool reports whether it was created.
	GetOrCreate(ctx context.Context, leadID, callSID string) (*domain.ConversationState, bool, error)

	// Get returns a snapshot of the lead's state, or ErrNotFound.
	Get(ctx context.Context, leadID string) (*domain.ConversationState, error)

	// AppendTurn appends one turn and moves the step to awaiting_response.
	// Returns the updated snapshot, or ErrNotFound for unknown leads.
	AppendTurn(ctx context.Context, leadID string, turn domain.Turn) (*domain.ConversationState, error)

	// Complete atomically marks the conversation completed and removes it.
	// The bool reports whether this caller won the transition; losers get
	// false with no error and must treat it as a benign no-op.
	Complete(ctx context.Context, leadID string) (*domain.ConversationState, bool, error)

	// FindByCallSID resolves the state whose active call matches the SID,
	// or ErrNotFound. Used by status callbacks, which carry no lead id.
	FindByCallSID(ctx context.Context, callSID string) (*domain.ConversationState, error)

	// ActiveLeadIDs lists the leads currently mid-call.
	ActiveLeadIDs(ctx context.Context) ([]string, error)
}

// MemoryStore is the in-process Store. A single mutex guards both the
// primary map and the callSID index so they can never diverge.
type MemoryStore struct {
	mu         sync.RWMutex
	states     map[string]*domain.ConversationState
	leadByCall map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:     make(map[string]*domain.ConversationState),
		leadByCall: make(map[string]string),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, leadID, callSID string) (*domain.ConversationState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[leadID]; ok {
		return snapshot(state), false, nil
	}

	state := &domain.ConversationState{
		LeadID:    leadID,
		CallSID:   callSID,
		Step:      domain.StepGreeting,
		StartedAt: time.Now(),
	}
	s.states[leadID] = state
	if callSID != "" {
		s.leadByCall[callSID] = leadID
	}
	return snapshot(state), true, nil
}

func (s *MemoryStore) Get(_ context.Context, leadID string) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[leadID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(state), nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, leadID string, turn domain.Turn) (*domain.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[leadID]
	if !ok {
		return nil, ErrNotFound
	}
	state.Turns = append(state.Turns, turn)
	state.Step = domain.StepAwaitingResponse
	return snapshot(state), nil
}

func (s *MemoryStore) Complete(_ context.Context, leadID string) (*domain.ConversationState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[leadID]
	if !ok {
		// Already finalized by a racing callback, or never tracked.
		return nil, false, nil
	}
	state.Step = domain.StepCompleted
	delete(s.states, leadID)
	delete(s.leadByCall, state.CallSID)
	return snapshot(state), true, nil
}

func (s *MemoryStore) FindByCallSID(_ context.Context, callSID string) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leadID, ok := s.leadByCall[callSID]
	if !ok {
		return nil, ErrNotFound
	}
	state, ok := s.states[leadID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(state), nil
}

func (s *MemoryStore) ActiveLeadIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	return ids, nil
}

// snapshot copies the state so callers never alias the store's slices.
func snapshot(state *domain.ConversationState) *domain.ConversationState {
	out := *state
	out.Turns = make([]domain.Turn, len(state.Turns))
	copy(out.Turns, state.Turns)
	return &out
}
