package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Upstream collaborators
	BookingAPIBaseURL  string
	BookingAPIToken    string
	PrisonerAPIBaseURL string
	PrisonerAPIToken   string
	ClientTimeout      time.Duration

	// Session cookie signing
	SessionSecret   string
	SessionCookie   string
	SessionLifetime time.Duration

	// Journey behaviour
	DraftTTL            time.Duration
	RefDataTTL          time.Duration
	PrisonWarningWindow time.Duration

	// Feature toggles
	HMCTSLinkAndGuestPIN bool

	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		BookingAPIBaseURL:  getEnv("BOOKING_API_BASE_URL", ""),
		BookingAPIToken:    getEnv("BOOKING_API_TOKEN", ""),
		PrisonerAPIBaseURL: getEnv("PRISONER_API_BASE_URL", ""),
		PrisonerAPIToken:   getEnv("PRISONER_API_TOKEN", ""),
		ClientTimeout:      getEnvAsDuration("CLIENT_TIMEOUT", 20*time.Second),

		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionCookie:   getEnv("SESSION_COOKIE", "vlb_session"),
		SessionLifetime: getEnvAsDuration("SESSION_LIFETIME", 12*time.Hour),

		DraftTTL:            getEnvAsDuration("DRAFT_TTL", time.Hour),
		RefDataTTL:          getEnvAsDuration("REFDATA_TTL", 10*time.Minute),
		PrisonWarningWindow: getEnvAsDuration("PRISON_WARNING_WINDOW", 48*time.Hour),

		HMCTSLinkAndGuestPIN: getEnvAsBool("FEATURE_HMCTS_LINK_GUEST_PIN", false),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
