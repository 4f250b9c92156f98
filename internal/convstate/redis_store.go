package convstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voxsell/voice-sales-agent/internal/domain"
	"github.com/voxsell/voice-sales-agent/pkg/redis"
)

const (
	leadKeyPrefix = "conv:lead:"
	callKeyPrefix = "conv:call:"
	doneKeyPrefix = "conv:done:"

	// Abandoned sessions expire on their own; a qualification call never
	// legitimately runs this long.
	sessionTTL = 2 * time.Hour

	// Completion markers outlive any straggling duplicate callback.
	doneMarkerTTL = 24 * time.Hour
)

// RedisStore is a Store backed by a shared Redis, giving the at-most-once
// terminal transition across processes via a SETNX completion marker.
type RedisStore struct {
	svc *redis.RedisService
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(svc *redis.RedisService) *RedisStore {
	return &RedisStore{svc: svc}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, leadID, callSID string) (*domain.ConversationState, bool, error) {
	if state, err := s.load(ctx, leadID); err == nil {
		return state, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	state := &domain.ConversationState{
		LeadID:    leadID,
		CallSID:   callSID,
		Step:      domain.StepGreeting,
		StartedAt: time.Now(),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, false, fmt.Errorf("marshal conversation state: %w", err)
	}

	created, err := s.svc.SetValueNX(ctx, leadKeyPrefix+leadID, string(data), sessionTTL)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Lost the creation race; return what the winner wrote.
		existing, err := s.load(ctx, leadID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if callSID != "" {
		if err := s.svc.SetValue(ctx, callKeyPrefix+callSID, leadID, sessionTTL); err != nil {
			return nil, false, err
		}
	}
	return state, true, nil
}

func (s *RedisStore) Get(ctx context.Context, leadID string) (*domain.ConversationState, error) {
	return s.load(ctx, leadID)
}

func (s *RedisStore) AppendTurn(ctx context.Context, leadID string, turn domain.Turn) (*domain.ConversationState, error) {
	state, err := s.load(ctx, leadID)
	if err != nil {
		return nil, err
	}
	state.Turns = append(state.Turns, turn)
	state.Step = domain.StepAwaitingResponse

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation state: %w", err)
	}
	if err := s.svc.SetValue(ctx, leadKeyPrefix+leadID, string(data), sessionTTL); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *RedisStore) Complete(ctx context.Context, leadID string) (*domain.ConversationState, bool, error) {
	state, err := s.load(ctx, leadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	// The SETNX marker is the compare-and-set: exactly one caller across
	// all processes observes won == true for this call leg. Keyed by call
	// SID too so the same lead can be called again later.
	marker := doneKeyPrefix + leadID + ":" + state.CallSID
	won, err := s.svc.SetValueNX(ctx, marker, time.Now().Format(time.RFC3339), doneMarkerTTL)
	if err != nil {
		return nil, false, err
	}
	if !won {
		return nil, false, nil
	}
	state.Step = domain.StepCompleted

	if err := s.svc.DelValue(ctx, leadKeyPrefix+leadID); err != nil {
		return nil, false, err
	}
	if state.CallSID != "" {
		_ = s.svc.DelValue(ctx, callKeyPrefix+state.CallSID)
	}
	return state, true, nil
}

func (s *RedisStore) FindByCallSID(ctx context.Context, callSID string) (*domain.ConversationState, error) {
	leadID, err := s.svc.GetValue(ctx, callKeyPrefix+callSID)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.load(ctx, leadID)
}

func (s *RedisStore) ActiveLeadIDs(ctx context.Context) ([]string, error) {
	keys, err := s.svc.ScanKeys(ctx, leadKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, leadKeyPrefix))
	}
	return ids, nil
}

func (s *RedisStore) load(ctx context.Context, leadID string) (*domain.ConversationState, error) {
	raw, err := s.svc.GetValue(ctx, leadKeyPrefix+leadID)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var state domain.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &state, nil
}
