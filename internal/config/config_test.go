package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550001111")
	t.Setenv("WEBHOOK_BASE_URL", "https://agent.example.com")
	t.Setenv("SESSION_SECRET", "signing-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_MODEL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.CallRatePerMinute != 10 || cfg.CallRateBurst != 3 {
		t.Fatalf("expected default rate limits, got %d/%d", cfg.CallRatePerMinute, cfg.CallRateBurst)
	}
	if cfg.RedisEnabled() {
		t.Fatal("expected redis disabled by default")
	}
	if cfg.ArchiveEnabled() {
		t.Fatal("expected archive disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("WEBHOOK_BASE_URL", "https://agent.example.com/")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CALL_RATE_PER_MINUTE", "30")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.WebhookBaseURL != "https://agent.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.WebhookBaseURL)
	}
	if !cfg.RedisEnabled() || !cfg.ArchiveEnabled() {
		t.Fatal("expected redis and archive enabled")
	}
	if cfg.CallRatePerMinute != 30 {
		t.Fatalf("expected rate override, got %d", cfg.CallRatePerMinute)
	}
}

func TestValidateReportsAllMissing(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_PHONE_NUMBER", "")
	t.Setenv("WEBHOOK_BASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	err := Load().Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, name := range []string{"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER", "WEBHOOK_BASE_URL", "SESSION_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %s in error, got %v", name, err)
		}
	}
}
