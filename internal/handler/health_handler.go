package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// HealthHandler serves the liveness endpoints.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// SetupHealthRoutes registers the liveness endpoints.
func (h *HealthHandler) SetupHealthRoutes(router *mux.Router) {
	router.HandleFunc("/", h.HandleRoot).Methods(http.MethodGet)
	router.HandleFunc("/test", h.HandleTest).Methods(http.MethodGet)
}

// HandleRoot answers plain-text liveness checks.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("AI Voice Sales Agent Webhook Server is running"))
}

// HandleTest returns a JSON status probe.
func (h *HealthHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"message":   "Webhook server is working",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
