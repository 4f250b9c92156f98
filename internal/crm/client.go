// Package crm talks to the CRM that owns lead records. The dispatcher
// consumes the narrow LeadStore interface; Client is the HTTP-backed
// implementation.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxsell/voice-sales-agent/internal/domain"
)

// ErrLeadNotFound is returned when the CRM has no record for the id.
var ErrLeadNotFound = errors.New("lead not found")

// LeadStore is the CRM surface the webhook dispatcher needs.
type LeadStore interface {
	GetLeadByID(ctx context.Context, leadID string) (*domain.Lead, error)
	MarkQualified(ctx context.Context, leadID, summary, history string) error
	MarkDisqualified(ctx context.Context, leadID, reason, history string) error
}

// Client handles communication with the CRM API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new CRM API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type qualifyRequest struct {
	Summary string `json:"summary"`
	History string `json:"history"`
}

type disqualifyRequest struct {
	Reason  string `json:"reason"`
	History string `json:"history"`
}

// GetLeadByID fetches a lead record, returning ErrLeadNotFound for 404s.
func (c *Client) GetLeadByID(ctx context.Context, leadID string) (*domain.Lead, error) {
	url := fmt.Sprintf("%s/api/v1/leads/%s", c.BaseURL, leadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrLeadNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("crm returned status %d: %s", resp.StatusCode, string(body))
	}

	var lead domain.Lead
	if err := json.NewDecoder(resp.Body).Decode(&lead); err != nil {
		return nil, fmt.Errorf("failed to decode lead: %w", err)
	}
	if lead.ID == "" {
		lead.ID = leadID
	}
	return &lead, nil
}

// MarkQualified records a qualified verdict with its summary and the
// serialized turn history.
func (c *Client) MarkQualified(ctx context.Context, leadID, summary, history string) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/leads/%s/qualify", leadID), qualifyRequest{
		Summary: summary,
		History: history,
	})
}

// MarkDisqualified records a disqualified verdict with its reason.
func (c *Client) MarkDisqualified(ctx context.Context, leadID, reason, history string) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/leads/%s/disqualify", leadID), disqualifyRequest{
		Reason:  reason,
		History: history,
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("crm returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
