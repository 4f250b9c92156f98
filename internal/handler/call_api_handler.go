package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/voxsell/voice-sales-agent/internal/convstate"
	"github.com/voxsell/voice-sales-agent/internal/crm"
	"github.com/voxsell/voice-sales-agent/internal/domain"
	"github.com/voxsell/voice-sales-agent/internal/services/call"
	"github.com/voxsell/voice-sales-agent/pkg/logger"
)

const defaultCallListLimit = 20

// CallInitiator places outbound calls. Satisfied by the call service.
type CallInitiator interface {
	InitiateCall(rawPhone, leadID string) *call.CallResult
	ListRecentCalls(limit int) []call.CallSummary
}

// CallAPIHandler serves the operator endpoints for starting calls and
// inspecting activity. All routes require a valid API key and call
// initiation is rate limited.
type CallAPIHandler struct {
	calls     CallInitiator
	leads     crm.LeadStore
	store     convstate.Store
	secretKey string
	limiter   *rate.Limiter
}

// NewCallAPIHandler creates the operator API handler.
func NewCallAPIHandler(calls CallInitiator, leads crm.LeadStore, store convstate.Store, secretKey string, limiter *rate.Limiter) *CallAPIHandler {
	return &CallAPIHandler{
		calls:     calls,
		leads:     leads,
		store:     store,
		secretKey: secretKey,
		limiter:   limiter,
	}
}

// SetupCallAPIRoutes registers the operator endpoints under /api.
func (h *CallAPIHandler) SetupCallAPIRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(APIKeyMiddleware(h.secretKey))

	initiate := http.HandlerFunc(h.HandleInitiateCall)
	apiRouter.Handle("/calls", RateLimitMiddleware(h.limiter)(initiate)).Methods(http.MethodPost)
	apiRouter.HandleFunc("/calls", h.HandleListCalls).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions", h.HandleListSessions).Methods(http.MethodGet)
	logger.Base().Info("operator api routes registered")
}

type initiateCallRequest struct {
	LeadID string `json:"lead_id"`
	Phone  string `json:"phone"`
}

// HandleInitiateCall starts an outbound qualification call to a lead.
// The phone number may be supplied in the request; otherwise it is read
// from the lead's CRM record.
// POST /api/calls
func (h *CallAPIHandler) HandleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req initiateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LeadID == "" {
		writeJSONError(w, http.StatusBadRequest, "lead_id is required")
		return
	}

	phoneNumber := req.Phone
	if phoneNumber == "" {
		lead, err := h.lookupLead(r.Context(), req.LeadID)
		if err != nil {
			if errors.Is(err, crm.ErrLeadNotFound) {
				writeJSONError(w, http.StatusNotFound, "lead not found")
				return
			}
			writeJSONError(w, http.StatusBadGateway, "failed to fetch lead")
			return
		}
		phoneNumber = lead.Phone
	}
	if phoneNumber == "" {
		writeJSONError(w, http.StatusBadRequest, "lead has no phone number")
		return
	}

	result := h.calls.InitiateCall(phoneNumber, req.LeadID)
	if result == nil {
		writeJSONError(w, http.StatusBadGateway, "failed to initiate call")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// HandleListCalls returns the recent call log from the provider.
// GET /api/calls?limit=N
func (h *CallAPIHandler) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	limit := defaultCallListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"calls": h.calls.ListRecentCalls(limit),
	})
}

// HandleListSessions returns the leads with a conversation currently in
// flight.
// GET /api/sessions
func (h *CallAPIHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ActiveLeadIDs(r.Context())
	if err != nil {
		logger.Base().Error("failed to list active sessions", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_lead_ids": ids,
		"count":           len(ids),
	})
}

func (h *CallAPIHandler) lookupLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	lead, err := h.leads.GetLeadByID(ctx, leadID)
	if err != nil {
		if !errors.Is(err, crm.ErrLeadNotFound) {
			logger.Base().Error("crm lookup failed during call initiation",
				zap.String("lead_id", leadID), zap.Error(err))
		}
		return nil, err
	}
	return lead, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
