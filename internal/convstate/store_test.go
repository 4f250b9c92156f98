package convstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voxsell/voice-sales-agent/internal/domain"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	state, created, err := store.GetOrCreate(ctx, "L1", "CA100")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, domain.StepGreeting, state.Step)
	require.Equal(t, "CA100", state.CallSID)

	// A second voice webhook for the same lead reuses the entry.
	_, created, err = store.GetOrCreate(ctx, "L1", "CA999")
	require.NoError(t, err)
	require.False(t, created)
	found, err := store.FindByCallSID(ctx, "CA100")
	require.NoError(t, err)
	require.Equal(t, "L1", found.LeadID)

	_, _, err = store.GetOrCreate(ctx, "L2", "CA200")
	require.NoError(t, err)
	ids, err := store.ActiveLeadIDs(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"L1", "L2"}, ids)

	final, won, err := store.Complete(ctx, "L1")
	require.NoError(t, err)
	require.True(t, won)
	require.Equal(t, domain.StepCompleted, final.Step)

	_, err = store.Get(ctx, "L1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindByCallSID(ctx, "CA100")
	require.ErrorIs(t, err, ErrNotFound)

	// Second completion is a benign no-op.
	_, won, err = store.Complete(ctx, "L1")
	require.NoError(t, err)
	require.False(t, won)
}

func TestMemoryStoreAppendOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _, err := store.GetOrCreate(ctx, "L1", "CA100")
	require.NoError(t, err)

	const n = 25
	for i := 0; i < n; i++ {
		_, err := store.AppendTurn(ctx, "L1", domain.Turn{
			Speaker: domain.SpeakerUser,
			Text:    fmt.Sprintf("utterance %d", i),
		})
		require.NoError(t, err)
	}

	state, err := store.Get(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, state.Turns, n)
	require.Equal(t, domain.StepAwaitingResponse, state.Step)
	for i, turn := range state.Turns {
		require.Equal(t, fmt.Sprintf("utterance %d", i), turn.Text)
	}
}

func TestMemoryStoreAppendUnknownLead(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.AppendTurn(context.Background(), "ghost", domain.Turn{Text: "hello"})
	require.ErrorIs(t, err, ErrNotFound)

	ids, err := store.ActiveLeadIDs(context.Background())
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestMemoryStoreCompleteAtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _, err := store.GetOrCreate(ctx, "L1", "CA100")
	require.NoError(t, err)

	// A final-gather callback and a status-completed callback racing must
	// produce exactly one winner.
	const racers = 16
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, won, err := store.Complete(ctx, "L1")
			if err != nil {
				t.Error(err)
				return
			}
			if won {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(1), wins)
}

func TestMemoryStoreSnapshotsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _, err := store.GetOrCreate(ctx, "L1", "CA100")
	require.NoError(t, err)
	_, err = store.AppendTurn(ctx, "L1", domain.Turn{Text: "original"})
	require.NoError(t, err)

	snap, err := store.Get(ctx, "L1")
	require.NoError(t, err)
	snap.Turns[0].Text = "mutated"

	again, err := store.Get(ctx, "L1")
	require.NoError(t, err)
	require.Equal(t, "original", again.Turns[0].Text)
}

func TestErrNotFoundIsSentinel(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
