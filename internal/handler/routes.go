package handler

import (
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/voxsell/voice-sales-agent/internal/config"
	"github.com/voxsell/voice-sales-agent/internal/convstate"
	"github.com/voxsell/voice-sales-agent/internal/crm"
	"github.com/voxsell/voice-sales-agent/internal/decision"
	"github.com/voxsell/voice-sales-agent/internal/dialog"
	"github.com/voxsell/voice-sales-agent/pkg/logger"
)

// HandlerManager owns all HTTP handlers and wires them onto the router.
type HandlerManager struct {
	health  *HealthHandler
	webhook *VoiceWebhookHandler
	callAPI *CallAPIHandler
}

// NewHandlerManager assembles the handlers from their collaborators.
func NewHandlerManager(cfg *config.Config, store convstate.Store, leads crm.LeadStore, decider decision.Decider, calls CallInitiator, archive Archiver) *HandlerManager {
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.CallRatePerMinute)/60.0), cfg.CallRateBurst)

	return &HandlerManager{
		health:  NewHealthHandler(),
		webhook: NewVoiceWebhookHandler(store, leads, decider, dialog.NewGenerator(), archive),
		callAPI: NewCallAPIHandler(calls, leads, store, cfg.SessionSecret, limiter),
	}
}

// SetupAllRoutes registers every route group and the shared middleware.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(LoggingMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(CORSMiddleware)

	hm.health.SetupHealthRoutes(router)
	hm.webhook.SetupWebhookRoutes(router)
	hm.callAPI.SetupCallAPIRoutes(router)

	logger.Base().Info("all routes registered")
}
