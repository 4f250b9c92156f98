package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the service configuration, loaded from the environment.
// The .env file is loaded in main.go via godotenv for local development.
type Config struct {
	Port   string
	LogEnv string

	// Twilio credentials and the number calls originate from.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioNumber     string

	// Public base URL Twilio uses to reach the webhook endpoints.
	WebhookBaseURL string

	// Secret used to sign operator API tokens.
	SessionSecret string

	// CRM collaborator.
	CRMBaseURL string
	CRMAPIKey  string

	// Decision function (OpenAI chat completions).
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Optional Redis-backed conversation store.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Optional call-record archive.
	DatabaseURL string

	// Operator API rate limit for outbound call initiation.
	CallRatePerMinute int
	CallRateBurst     int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:   getEnvOrDefault("PORT", "8080"),
		LogEnv: getEnvOrDefault("LOG_ENV", "development"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioNumber:     os.Getenv("TWILIO_PHONE_NUMBER"),

		WebhookBaseURL: strings.TrimRight(os.Getenv("WEBHOOK_BASE_URL"), "/"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),

		CRMBaseURL: strings.TrimRight(getEnvOrDefault("CRM_BASE_URL", ""), "/"),
		CRMAPIKey:  os.Getenv("CRM_API_KEY"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsIntOrDefault("REDIS_DB", 0),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		CallRatePerMinute: getEnvAsIntOrDefault("CALL_RATE_PER_MINUTE", 10),
		CallRateBurst:     getEnvAsIntOrDefault("CALL_RATE_BURST", 3),
	}
}

// Validate fails fast on missing required configuration. The process must
// not start without working Twilio credentials and a reachable callback URL.
func (c *Config) Validate() error {
	var missing []string
	if c.TwilioAccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if c.TwilioAuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if c.TwilioNumber == "" {
		missing = append(missing, "TWILIO_PHONE_NUMBER")
	}
	if c.WebhookBaseURL == "" {
		missing = append(missing, "WEBHOOK_BASE_URL")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RedisEnabled reports whether the Redis-backed conversation store should
// be used instead of the in-memory one.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// ArchiveEnabled reports whether completed calls are persisted to Postgres.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
