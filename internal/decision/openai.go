package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxsell/voice-sales-agent/internal/domain"
)

const systemPrompt = `You are a sales qualification agent on a phone call with a lead. ` +
	`Given the conversation so far, either ask the next short qualification question ` +
	`or, once you have enough signal, deliver a final verdict. ` +
	`Respond with JSON only: {"is_final": bool, "next_question": string, ` +
	`"qualification_result": "qualified"|"disqualified", "summary": string, "reason": string}.`

// OpenAIDecider implements Decider against the OpenAI chat completions API.
type OpenAIDecider struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewOpenAIDecider creates a decider backed by OpenAI chat completions.
func NewOpenAIDecider(baseURL, apiKey, model string) *OpenAIDecider {
	return &OpenAIDecider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// decisionPayload is the loosely-shaped JSON the model returns; it gets
// mapped onto the typed Decision variant before anyone else sees it.
type decisionPayload struct {
	IsFinal             bool   `json:"is_final"`
	NextQuestion        string `json:"next_question"`
	QualificationResult string `json:"qualification_result"`
	Summary             string `json:"summary"`
	Reason              string `json:"reason"`
}

func (d *OpenAIDecider) Decide(ctx context.Context, leadID, utterance string, state *domain.ConversationState) (domain.Decision, error) {
	messages := d.buildMessages(state)
	if utterance != "" {
		messages = append(messages, chatMessage{Role: "user", Content: utterance})
	}
	return d.complete(ctx, messages)
}

func (d *OpenAIDecider) DecideFinal(ctx context.Context, leadID string, state *domain.ConversationState) (domain.Decision, error) {
	messages := d.buildMessages(state)
	messages = append(messages, chatMessage{
		Role:    "user",
		Content: "The call has ended. Deliver the final qualification verdict now from the conversation so far.",
	})
	return d.complete(ctx, messages)
}

func (d *OpenAIDecider) buildMessages(state *domain.ConversationState) []chatMessage {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	if state == nil {
		return messages
	}
	for _, turn := range state.Turns {
		role := "user"
		if turn.Speaker == domain.SpeakerAgent {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}
	return messages
}

func (d *OpenAIDecider) complete(ctx context.Context, messages []chatMessage) (domain.Decision, error) {
	reqBody := chatRequest{Model: d.Model, Messages: messages}
	reqBody.ResponseFormat.Type = "json_object"

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/v1/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.APIKey)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return parseDecision(chat.Choices[0].Message.Content)
}

// parseDecision maps the model's JSON onto the typed Decision variant.
func parseDecision(content string) (domain.Decision, error) {
	var payload decisionPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}

	if !payload.IsFinal {
		return domain.FollowUp{NextQuestion: payload.NextQuestion}, nil
	}

	result := domain.QualificationResult(payload.QualificationResult)
	switch result {
	case domain.ResultQualified, domain.ResultDisqualified:
	default:
		result = domain.ResultUnknown
	}
	return domain.FinalVerdict{
		Result:  result,
		Summary: payload.Summary,
		Reason:  payload.Reason,
	}, nil
}
