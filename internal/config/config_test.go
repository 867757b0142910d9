package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to reset the environment variables touched by a test
	clearEnv := func() {
		t.Helper()
		for _, key := range []string{
			"APP_ENV", "GENERATOR_PROVIDER", "GEMINI_API_KEY", "GROQ_API_KEY",
			"JWT_SECRET", "PLAN_TIMEOUT", "QA_TIMEOUT", "JWT_TTL", "PORT",
			"TELEGRAM_ADMIN_ID", "TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_SECRET",
		} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}

	t.Run("Success", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("JWT_SECRET", strings.Repeat("s", 40))
		t.Setenv("TELEGRAM_ADMIN_ID", "42")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey to be 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.Port != "5000" {
			t.Errorf("Expected default port 5000, got '%s'", cfg.Port)
		}
		if cfg.PlanTimeout != 30*time.Second {
			t.Errorf("Expected plan timeout 30s, got %s", cfg.PlanTimeout)
		}
		if cfg.QATimeout != 60*time.Second {
			t.Errorf("Expected Q&A timeout 60s, got %s", cfg.QATimeout)
		}
		if cfg.JWTTTL != 90*24*time.Hour {
			t.Errorf("Expected token TTL of 90 days, got %s", cfg.JWTTTL)
		}
		if cfg.TelegramAdminID != 42 {
			t.Errorf("Expected TelegramAdminID 42, got %d", cfg.TelegramAdminID)
		}
		if cfg.DevJWTSecret {
			t.Error("Explicit secret must not be flagged as the development secret")
		}
		if cfg.TelegramEnabled() {
			t.Error("Telegram must be disabled without a bot token")
		}
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		clearEnv()

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GEMINI_API_KEY, got nil")
		}
		expectedError := "GEMINI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("GroqProviderNeedsGroqKey", func(t *testing.T) {
		clearEnv()
		t.Setenv("GENERATOR_PROVIDER", "groq")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GROQ_API_KEY, got nil")
		}
		expectedError := "GROQ_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("DevelopmentFallsBackToDevSecret", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !cfg.DevJWTSecret {
			t.Error("Expected the development secret to be flagged")
		}
	})

	t.Run("ProductionRequiresSecret", func(t *testing.T) {
		clearEnv()
		t.Setenv("APP_ENV", "production")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing JWT_SECRET in production, got nil")
		}
	})

	t.Run("ShortSecret", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("JWT_SECRET", "short")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a short JWT_SECRET, got nil")
		}
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("PLAN_TIMEOUT", "soon")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for an unparsable PLAN_TIMEOUT, got nil")
		}
	})

	t.Run("TelegramRequiresWebhookSecret", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for a bot token without TELEGRAM_WEBHOOK_SECRET, got nil")
		}
		expectedError := "TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_BOT_TOKEN is set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("TelegramWebhookSecretCharacters", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "has spaces!")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a secret with invalid characters, got nil")
		}
	})

	t.Run("TelegramEnabled", func(t *testing.T) {
		clearEnv()
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "webhook_secret-01")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !cfg.TelegramEnabled() || cfg.TelegramWebhookSecret != "webhook_secret-01" {
			t.Errorf("Unexpected telegram config %+v", cfg)
		}
	})
}
