package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/voxsell/voice-sales-agent/internal/config"
	"github.com/voxsell/voice-sales-agent/internal/convstate"
	"github.com/voxsell/voice-sales-agent/internal/crm"
	"github.com/voxsell/voice-sales-agent/internal/decision"
	"github.com/voxsell/voice-sales-agent/internal/handler"
	"github.com/voxsell/voice-sales-agent/internal/repository"
	"github.com/voxsell/voice-sales-agent/internal/services/call"
	"github.com/voxsell/voice-sales-agent/pkg/logger"
	"github.com/voxsell/voice-sales-agent/pkg/redis"
)

// Server represents the voice sales agent webhook server
type Server struct {
	config *config.Config
	router *mux.Router
}

// NewServer wires the services and handlers into a ready-to-start server
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(cfg.LogEnv); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Conversation state: shared Redis when configured, in-process otherwise
	store, err := newConversationStore(cfg)
	if err != nil {
		return nil, err
	}

	// Optional Postgres archive of completed calls
	var archive handler.Archiver
	if cfg.ArchiveEnabled() {
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open call-record archive: %w", err)
		}
		archive = repository.NewCallRecordRepository(db)
		logger.Base().Info("call-record archive enabled")
	} else {
		logger.Base().Info("call-record archive disabled, DATABASE_URL not set")
	}

	leads := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey)
	decider := decision.NewOpenAIDecider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	calls := call.NewService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioNumber, cfg.WebhookBaseURL)

	// Fail fast on bad Twilio credentials rather than on the first call
	if !calls.VerifyCredentials() {
		return nil, fmt.Errorf("twilio credential verification failed")
	}

	router := mux.NewRouter()
	handlerManager := handler.NewHandlerManager(cfg, store, leads, decider, calls, archive)
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config: cfg,
		router: router,
	}, nil
}

func newConversationStore(cfg *config.Config) (convstate.Store, error) {
	if !cfg.RedisEnabled() {
		logger.Base().Info("using in-memory conversation store")
		return convstate.NewMemoryStore(), nil
	}

	svc, err := redis.NewRedisService(&redis.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Base().Info("using redis conversation store",
		zap.String("host", cfg.RedisHost),
		zap.String("port", cfg.RedisPort))
	return convstate.NewRedisStore(svc), nil
}

// Start runs the HTTP server until it fails
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server",
		zap.String("addr", addr),
		zap.String("webhook_base_url", s.config.WebhookBaseURL))
	return server.ListenAndServe()
}

func main() {
	// 0. Load .env file for local development if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	// 1. Load and validate configuration from environment
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Create the server
	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer logger.Sync()

	// 3. Start the server
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
