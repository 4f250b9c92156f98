// Package call wraps the Twilio call-control REST API for the outbound
// qualification flow. All failures are logged and surfaced as absent
// results; callers must treat a nil result as "call not placed."
package call

import (
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/voxsell/voice-sales-agent/internal/phone"
	"github.com/voxsell/voice-sales-agent/pkg/logger"
)

// twilioAPI is the slice of the Twilio REST client the service uses,
// kept as an interface so tests can stub the provider.
type twilioAPI interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
	FetchCall(Sid string, params *api.FetchCallParams) (*api.ApiV2010Call, error)
	UpdateCall(Sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
	ListCall(params *api.ListCallParams) ([]api.ApiV2010Call, error)
	FetchAccount(Sid string) (*api.ApiV2010Account, error)
}

// Service originates and controls outbound Twilio calls.
type Service struct {
	client         twilioAPI
	accountSID     string
	fromNumber     string
	webhookBaseURL string
}

// NewService creates a call service from Twilio credentials.
func NewService(accountSID, authToken, fromNumber, webhookBaseURL string) *Service {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Service{
		client:         rest.Api,
		accountSID:     accountSID,
		fromNumber:     fromNumber,
		webhookBaseURL: webhookBaseURL,
	}
}

// VoiceWebhookURL builds the call-started callback URL with the lead
// embedded in the path, so the webhook can resolve the CRM record.
func (s *Service) VoiceWebhookURL(leadID string) string {
	return fmt.Sprintf("%s/twilio/voice/%s", s.webhookBaseURL, leadID)
}

// InitiateCall places an outbound call to a lead. Recording is enabled and
// status/recording callbacks are registered up front.
func (s *Service) InitiateCall(rawPhone, leadID string) *CallResult {
	to := phone.Normalize(rawPhone)

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetUrl(s.VoiceWebhookURL(leadID))
	params.SetMethod("POST")
	params.SetStatusCallback(s.webhookBaseURL + "/twilio/status")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	params.SetStatusCallbackMethod("POST")
	params.SetRecord(true)
	params.SetRecordingStatusCallback(s.webhookBaseURL + "/twilio/recording")
	params.SetRecordingStatusCallbackMethod("POST")

	resp, err := s.client.CreateCall(params)
	if err != nil {
		logger.Base().Error("failed to initiate call",
			zap.String("lead_id", leadID),
			zap.String("to", to),
			zap.Error(err))
		return nil
	}
	if resp == nil || resp.Sid == nil {
		logger.Base().Error("call created without sid",
			zap.String("lead_id", leadID),
			zap.String("to", to))
		return nil
	}

	result := &CallResult{
		CallSID: *resp.Sid,
		Status:  deref(resp.Status),
		To:      to,
		LeadID:  leadID,
	}
	logger.Base().Info("initiated outbound call",
		zap.String("lead_id", leadID),
		zap.String("to", to),
		zap.String("call_sid", result.CallSID))
	return result
}

// GetCallStatus fetches the current status of a call.
func (s *Service) GetCallStatus(callSID string) *CallStatus {
	resp, err := s.client.FetchCall(callSID, &api.FetchCallParams{})
	if err != nil {
		logger.Base().Error("failed to fetch call status",
			zap.String("call_sid", callSID),
			zap.Error(err))
		return nil
	}
	return &CallStatus{
		SID:       deref(resp.Sid),
		Status:    deref(resp.Status),
		Duration:  deref(resp.Duration),
		StartTime: deref(resp.StartTime),
		EndTime:   deref(resp.EndTime),
		Price:     deref(resp.Price),
		PriceUnit: deref(resp.PriceUnit),
	}
}

// EndCall terminates an active call.
func (s *Service) EndCall(callSID string) bool {
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := s.client.UpdateCall(callSID, params); err != nil {
		logger.Base().Error("failed to end call",
			zap.String("call_sid", callSID),
			zap.Error(err))
		return false
	}
	logger.Base().Info("ended call", zap.String("call_sid", callSID))
	return true
}

// ListRecentCalls returns summaries of recent calls, empty on failure.
func (s *Service) ListRecentCalls(limit int) []CallSummary {
	params := &api.ListCallParams{}
	params.SetLimit(limit)
	calls, err := s.client.ListCall(params)
	if err != nil {
		logger.Base().Error("failed to list recent calls", zap.Error(err))
		return []CallSummary{}
	}

	summaries := make([]CallSummary, 0, len(calls))
	for _, c := range calls {
		summaries = append(summaries, CallSummary{
			SID:       deref(c.Sid),
			To:        deref(c.To),
			From:      deref(c.FromFormatted),
			Status:    deref(c.Status),
			StartTime: deref(c.StartTime),
			Duration:  deref(c.Duration),
			Price:     deref(c.Price),
		})
	}
	return summaries
}

// VerifyCredentials checks the Twilio credentials by fetching the account.
// Used at startup to fail fast on misconfiguration.
func (s *Service) VerifyCredentials() bool {
	account, err := s.client.FetchAccount(s.accountSID)
	if err != nil {
		logger.Base().Error("twilio credential check failed", zap.Error(err))
		return false
	}
	logger.Base().Info("twilio credential check passed",
		zap.String("account", deref(account.FriendlyName)))
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
