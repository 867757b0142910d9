package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ProviderGemini = "gemini"
	ProviderGroq   = "groq"

	minJWTSecretLength = 32
	// devJWTSecret is only ever used when APP_ENV is not production.
	devJWTSecret = "medidiet-development-secret-do-not-use-in-prod"
)

// Config holds the configuration for the application.
type Config struct {
	Port         string
	AppEnv       string
	DatabasePath string
	LogLevel     string
	FrontendURL  string

	// Generator
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	GroqAPIURL   string
	PlanTimeout  time.Duration
	QATimeout    time.Duration

	// Auth
	JWTSecret string
	JWTTTL    time.Duration
	// DevJWTSecret is true when the built-in development secret is in use.
	DevJWTSecret bool

	// Telegram Config
	TelegramBotToken   string
	TelegramWebhookURL string
	// TelegramWebhookSecret is registered with setWebhook and must come back
	// in the X-Telegram-Bot-Api-Secret-Token header of every update.
	TelegramWebhookSecret string
	TelegramAdminID       int64
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// TelegramEnabled reports whether the Telegram transport should be started.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	appEnv := getEnv("APP_ENV", EnvDevelopment)
	if appEnv != EnvDevelopment && appEnv != EnvProduction && appEnv != "test" {
		return nil, fmt.Errorf("APP_ENV must be one of development, production, test, got %q", appEnv)
	}

	provider := strings.ToLower(getEnv("GENERATOR_PROVIDER", ProviderGemini))
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	switch provider {
	case ProviderGemini:
		if geminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if groqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("GENERATOR_PROVIDER must be gemini or groq, got %q", provider)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	devSecret := false
	if jwtSecret == "" {
		if appEnv == EnvProduction {
			return nil, fmt.Errorf("JWT_SECRET environment variable not set")
		}
		jwtSecret = devJWTSecret
		devSecret = true
	}
	if len(jwtSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}

	planTimeout, err := getDuration("PLAN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	qaTimeout, err := getDuration("QA_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	jwtTTL, err := getDuration("JWT_TTL", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}

	port := getEnv("PORT", "5000")
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("PORT must be a number, got %q", port)
	}

	// Telegram Config (optional)
	var telegramAdminID int64
	if raw := os.Getenv("TELEGRAM_ADMIN_ID"); raw != "" {
		telegramAdminID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_ID must be a number: %w", err)
		}
	}

	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	telegramSecret := os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	if telegramBotToken != "" {
		if telegramSecret == "" {
			return nil, fmt.Errorf("TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_BOT_TOKEN is set")
		}
		if !validWebhookSecret(telegramSecret) {
			return nil, fmt.Errorf("TELEGRAM_WEBHOOK_SECRET must be 1-256 characters of A-Z, a-z, 0-9, _ or -")
		}
	}

	return &Config{
		Port:                  port,
		AppEnv:                appEnv,
		DatabasePath:          getEnv("DATABASE_PATH", "data/db/medidiet.db"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		Provider:              provider,
		GeminiAPIKey:          geminiAPIKey,
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GroqAPIKey:            groqAPIKey,
		GroqModel:             getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqAPIURL:            getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		PlanTimeout:           planTimeout,
		QATimeout:             qaTimeout,
		JWTSecret:             jwtSecret,
		JWTTTL:                jwtTTL,
		DevJWTSecret:          devSecret,
		TelegramBotToken:      telegramBotToken,
		TelegramWebhookURL:    os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramWebhookSecret: telegramSecret,
		TelegramAdminID:       telegramAdminID,
	}, nil
}

// validWebhookSecret applies Telegram's secret_token character rules.
func validWebhookSecret(s string) bool {
	if len(s) == 0 || len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
