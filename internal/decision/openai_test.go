package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voxsell/voice-sales-agent/internal/domain"
)

func chatServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestDecideFollowUp(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, `{"is_final": false, "next_question": "What is your budget?"}`, &got)
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "key", "gpt-4o-mini")
	state := &domain.ConversationState{
		LeadID: "L1",
		Turns: []domain.Turn{
			{Speaker: domain.SpeakerAgent, Text: "Namaste!", Timestamp: time.Now()},
		},
	}
	decision, err := d.Decide(context.Background(), "L1", "yes interested", state)
	require.NoError(t, err)

	followUp, ok := decision.(domain.FollowUp)
	require.True(t, ok, "expected FollowUp, got %T", decision)
	require.Equal(t, "What is your budget?", followUp.NextQuestion)

	// History plus the fresh utterance flow into the model.
	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 3)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "assistant", got.Messages[1].Role)
	require.Equal(t, "yes interested", got.Messages[2].Content)
}

func TestDecideFinalVerdict(t *testing.T) {
	srv := chatServer(t, `{"is_final": true, "qualification_result": "qualified", "summary": "has budget and timeline"}`, nil)
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "key", "gpt-4o-mini")
	decision, err := d.DecideFinal(context.Background(), "L1", &domain.ConversationState{LeadID: "L1"})
	require.NoError(t, err)

	verdict, ok := decision.(domain.FinalVerdict)
	require.True(t, ok, "expected FinalVerdict, got %T", decision)
	require.Equal(t, domain.ResultQualified, verdict.Result)
	require.Equal(t, "has budget and timeline", verdict.Summary)
}

func TestDecideUnknownResultNormalized(t *testing.T) {
	srv := chatServer(t, `{"is_final": true, "qualification_result": "maybe"}`, nil)
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "key", "gpt-4o-mini")
	decision, err := d.Decide(context.Background(), "L1", "hmm", &domain.ConversationState{})
	require.NoError(t, err)
	verdict := decision.(domain.FinalVerdict)
	require.Equal(t, domain.ResultUnknown, verdict.Result)
}

func TestDecideMalformedContent(t *testing.T) {
	srv := chatServer(t, "not json at all", nil)
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "key", "gpt-4o-mini")
	_, err := d.Decide(context.Background(), "L1", "hello", &domain.ConversationState{})
	require.Error(t, err)
}

func TestDecideServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewOpenAIDecider(srv.URL, "key", "gpt-4o-mini")
	_, err := d.Decide(context.Background(), "L1", "hello", &domain.ConversationState{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}
