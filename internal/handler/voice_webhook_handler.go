package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/voxsell/voice-sales-agent/internal/convstate"
	"github.com/voxsell/voice-sales-agent/internal/crm"
	"github.com/voxsell/voice-sales-agent/internal/decision"
	"github.com/voxsell/voice-sales-agent/internal/dialog"
	"github.com/voxsell/voice-sales-agent/internal/domain"
	"github.com/voxsell/voice-sales-agent/internal/twiml"
	"github.com/voxsell/voice-sales-agent/pkg/logger"
)

// Archiver persists completed calls. Optional; nil disables archiving.
type Archiver interface {
	Archive(ctx context.Context, state *domain.ConversationState, verdict domain.FinalVerdict) (*domain.CallRecord, error)
}

// VoiceWebhookHandler is the protocol state machine behind Twilio's
// callbacks. Each callback arrives as an independent stateless request;
// the handler reconstructs the conversation from the state store, decides
// the next spoken prompt, and detects terminal conditions.
type VoiceWebhookHandler struct {
	store   convstate.Store
	leads   crm.LeadStore
	decider decision.Decider
	dialog  *dialog.Generator
	archive Archiver
}

// NewVoiceWebhookHandler creates the webhook dispatcher.
func NewVoiceWebhookHandler(store convstate.Store, leads crm.LeadStore, decider decision.Decider, generator *dialog.Generator, archive Archiver) *VoiceWebhookHandler {
	return &VoiceWebhookHandler{
		store:   store,
		leads:   leads,
		decider: decider,
		dialog:  generator,
		archive: archive,
	}
}

// SetupWebhookRoutes registers the Twilio callback endpoints.
func (h *VoiceWebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/twilio/voice/{lead_id}", h.HandleVoice).Methods(http.MethodPost)
	router.HandleFunc("/twilio/gather", h.HandleGather).Methods(http.MethodPost)
	router.HandleFunc("/twilio/status", h.HandleStatus).Methods(http.MethodPost)
	router.HandleFunc("/twilio/recording", h.HandleRecording).Methods(http.MethodPost)
	logger.Base().Info("twilio webhook routes registered")
}

// HandleVoice handles the call-started callback.
// POST /twilio/voice/{lead_id}
func (h *VoiceWebhookHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	defer h.recoverToErrorTwiML(w, "voice")

	leadID := mux.Vars(r)["lead_id"]
	if err := r.ParseForm(); err != nil {
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
		return
	}
	callSID := r.FormValue("CallSid")

	logger.Base().Info("voice webhook received",
		zap.String("lead_id", leadID),
		zap.String("call_sid", callSID),
		zap.String("from", r.FormValue("From")),
		zap.String("to", r.FormValue("To")))

	_, created, err := h.store.GetOrCreate(r.Context(), leadID, callSID)
	if err != nil {
		logger.Base().Error("failed to initialize conversation state",
			zap.String("lead_id", leadID), zap.Error(err))
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
		return
	}

	lead, err := h.leads.GetLeadByID(r.Context(), leadID)
	if err != nil {
		message := "error fetching lead information"
		if errors.Is(err, crm.ErrLeadNotFound) {
			message = "lead information not found"
			logger.Base().Error("lead not found in crm", zap.String("lead_id", leadID))
		} else {
			logger.Base().Error("failed to fetch lead from crm",
				zap.String("lead_id", leadID), zap.Error(err))
		}
		// Clean up only the entry this request created. A transient CRM
		// fault on a duplicate delivery must not evict a live conversation.
		if created {
			_, _, _ = h.store.Complete(r.Context(), leadID)
		}
		h.writeTwiML(w, h.dialog.Error(message))
		return
	}

	logger.Base().Info("greeting lead",
		zap.String("lead_id", leadID),
		zap.String("lead_name", lead.DisplayName()))
	h.writeTwiML(w, h.dialog.Greeting(lead, leadID))
}

// HandleGather handles the speech-result callback.
// POST /twilio/gather?lead_id=<id>
func (h *VoiceWebhookHandler) HandleGather(w http.ResponseWriter, r *http.Request) {
	defer h.recoverToErrorTwiML(w, "gather")

	if err := r.ParseForm(); err != nil {
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
		return
	}
	leadID := r.FormValue("lead_id")
	speech := r.FormValue("SpeechResult")
	confidence := r.FormValue("Confidence")

	logger.Base().Info("speech input received",
		zap.String("lead_id", leadID),
		zap.String("speech", speech),
		zap.String("confidence", confidence))

	if leadID == "" {
		h.writeTwiML(w, h.dialog.Error("invalid lead ID"))
		return
	}

	state, err := h.store.AppendTurn(r.Context(), leadID, domain.Turn{
		Speaker:    domain.SpeakerUser,
		Text:       speech,
		Confidence: confidence,
		Timestamp:  time.Now(),
	})
	if err != nil {
		if errors.Is(err, convstate.ErrNotFound) {
			logger.Base().Warn("gather for unknown lead", zap.String("lead_id", leadID))
			h.writeTwiML(w, h.dialog.Error("invalid lead ID"))
			return
		}
		logger.Base().Error("failed to append turn",
			zap.String("lead_id", leadID), zap.Error(err))
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
		return
	}

	result, err := h.decider.Decide(r.Context(), leadID, speech, state)
	if err != nil {
		logger.Base().Error("decision function failed",
			zap.String("lead_id", leadID),
			zap.String("call_sid", state.CallSID),
			zap.Error(err))
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
		return
	}

	switch d := result.(type) {
	case domain.FollowUp:
		h.writeTwiML(w, h.dialog.FollowUp(leadID, d.NextQuestion))

	case domain.FinalVerdict:
		final, won, err := h.store.Complete(r.Context(), leadID)
		if err != nil {
			logger.Base().Error("failed to complete conversation",
				zap.String("lead_id", leadID), zap.Error(err))
		} else if won {
			h.finalize(r.Context(), final, d)
		}
		// A lost race means the status callback already finalized; the
		// caller still hears the closing message either way.
		h.writeTwiML(w, h.dialog.Final(d.Result))

	default:
		logger.Base().Error("unknown decision type", zap.String("lead_id", leadID))
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
	}
}

// HandleStatus handles call-status callbacks, which carry only the call
// SID. A "completed" status for a conversation that never reached a final
// verdict triggers the fallback qualification path.
// POST /twilio/status
func (h *VoiceWebhookHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	callSID := r.FormValue("CallSid")
	callStatus := r.FormValue("CallStatus")

	logger.Base().Info("call status update",
		zap.String("call_sid", callSID),
		zap.String("status", callStatus),
		zap.String("duration", r.FormValue("CallDuration")))

	if callStatus != "completed" {
		h.writeOK(w)
		return
	}

	state, err := h.store.FindByCallSID(r.Context(), callSID)
	if err != nil {
		if !errors.Is(err, convstate.ErrNotFound) {
			logger.Base().Error("failed to resolve call sid",
				zap.String("call_sid", callSID), zap.Error(err))
			http.Error(w, "Error", http.StatusInternalServerError)
			return
		}
		// Already finalized or never tracked; nothing to do.
		h.writeOK(w)
		return
	}

	final, won, err := h.store.Complete(r.Context(), state.LeadID)
	if err != nil {
		logger.Base().Error("failed to complete conversation",
			zap.String("lead_id", state.LeadID),
			zap.String("call_sid", callSID),
			zap.Error(err))
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	if !won {
		h.writeOK(w)
		return
	}

	logger.Base().Info("running fallback qualification",
		zap.String("lead_id", final.LeadID),
		zap.String("call_sid", callSID),
		zap.Int("turns", len(final.Turns)))

	verdict := domain.FinalVerdict{Result: domain.ResultUnknown, Reason: "call ended before final decision"}
	decided, err := h.decider.DecideFinal(r.Context(), final.LeadID, final)
	if err != nil {
		// The entry is already removed; accept the degraded verdict
		// rather than leaking the conversation.
		logger.Base().Error("fallback qualification failed",
			zap.String("lead_id", final.LeadID), zap.Error(err))
	} else if v, ok := decided.(domain.FinalVerdict); ok {
		verdict = v
	}

	h.finalize(r.Context(), final, verdict)
	h.writeOK(w)
}

// HandleRecording handles recording-status callbacks. Logging only.
// POST /twilio/recording
func (h *VoiceWebhookHandler) HandleRecording(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	logger.Base().Info("recording status update",
		zap.String("call_sid", r.FormValue("CallSid")),
		zap.String("status", r.FormValue("RecordingStatus")),
		zap.String("url", r.FormValue("RecordingUrl")))
	h.writeOK(w)
}

// finalize performs the terminal CRM write and archives the call. Callers
// must only invoke it after winning the store's Complete transition, which
// is what makes the write at-most-once.
func (h *VoiceWebhookHandler) finalize(ctx context.Context, state *domain.ConversationState, verdict domain.FinalVerdict) {
	history := serializeTurns(state.Turns)

	var err error
	if verdict.Result == domain.ResultQualified {
		err = h.leads.MarkQualified(ctx, state.LeadID, verdict.Summary, history)
	} else {
		reason := verdict.Reason
		if reason == "" {
			reason = "No specific reason"
		}
		err = h.leads.MarkDisqualified(ctx, state.LeadID, reason, history)
	}
	if err != nil {
		// Known gap: the entry is gone, the CRM write is lost. Logged
		// for operators to reconcile against provider call logs.
		logger.Base().Error("crm write failed on terminal transition",
			zap.String("lead_id", state.LeadID),
			zap.String("call_sid", state.CallSID),
			zap.String("verdict", string(verdict.Result)),
			zap.Error(err))
	}

	if h.archive != nil {
		if _, err := h.archive.Archive(ctx, state, verdict); err != nil {
			logger.Base().Error("failed to archive call record",
				zap.String("lead_id", state.LeadID), zap.Error(err))
		}
	}

	logger.Base().Info("call ended",
		zap.String("lead_id", state.LeadID),
		zap.String("call_sid", state.CallSID),
		zap.String("verdict", string(verdict.Result)),
		zap.Int("turns", len(state.Turns)))
}

func (h *VoiceWebhookHandler) writeTwiML(w http.ResponseWriter, resp *twiml.Response) {
	body, err := resp.Render()
	if err != nil {
		logger.Base().Error("failed to render twiml", zap.Error(err))
		body = []byte(`<?xml version="1.0" encoding="UTF-8"?><Response><Say>Sorry, an error occurred. Please try again later.</Say><Hangup></Hangup></Response>`)
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *VoiceWebhookHandler) writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// recoverToErrorTwiML keeps the voice-path promise: the provider always
// receives well-formed TwiML, even on an unexpected fault.
func (h *VoiceWebhookHandler) recoverToErrorTwiML(w http.ResponseWriter, endpoint string) {
	if rec := recover(); rec != nil {
		logger.Base().Error("panic in voice webhook",
			zap.String("endpoint", endpoint),
			zap.Any("panic", rec))
		h.writeTwiML(w, h.dialog.Error("an error occurred"))
	}
}

func serializeTurns(turns []domain.Turn) string {
	data, err := json.Marshal(turns)
	if err != nil {
		return "[]"
	}
	return string(data)
}
