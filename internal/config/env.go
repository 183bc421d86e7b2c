package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// Extraction
	ExtractorProvider    string
	GeminiAPIKey         string
	GeminiModel          string
	AnthropicAPIKey      string
	ClaudeModel          string
	ExtractorTemperature float64
	ExtractionTimeout    time.Duration

	// Core
	DBPath                 string
	HTTPPort               int
	ContextTurns           int
	DefaultDurationMinutes int
	Timezone               string
	RealtorName            string

	// Sheet sync
	SheetID                  string
	SheetName                string
	GoogleServiceAccountFile string
	SheetSyncInterval        time.Duration

	// WhatsApp direct transport
	WhatsAppEnabled bool
	WhatsAppDBPath  string

	// Notifications
	ResendAPIKey string
	EmailFrom    string
	RealtorEmail string

	// Logging
	LogLevel  string
	LogPretty bool
}

func LoadFromEnv() *Config {
	cfg := &Config{
		ExtractorProvider:    getEnvOrDefault("EXTRACTOR_PROVIDER", "gemini"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		ClaudeModel:          getEnvOrDefault("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ExtractorTemperature: getEnvAsFloatOrDefault("EXTRACTOR_TEMPERATURE", 0.5),
		ExtractionTimeout:    getEnvAsDurationOrDefault("EXTRACTION_TIMEOUT", 20*time.Second),

		DBPath:                 getEnvOrDefault("DB_PATH", "./realtor.db"),
		HTTPPort:               getEnvAsIntOrDefault("HTTP_PORT", 8080),
		ContextTurns:           getEnvAsIntOrDefault("CONTEXT_TURNS", 6),
		DefaultDurationMinutes: getEnvAsIntOrDefault("DEFAULT_DURATION_MINUTES", 60),
		Timezone:               getEnvOrDefault("TIMEZONE", "UTC"),
		RealtorName:            getEnvOrDefault("REALTOR_NAME", "Sherri"),

		SheetID:                  os.Getenv("SHEET_ID"),
		SheetName:                getEnvOrDefault("SHEET_NAME", "Sheet1"),
		GoogleServiceAccountFile: getEnvOrDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "./whatsapp-bot-credentials.json"),
		SheetSyncInterval:        getEnvAsDurationOrDefault("SHEET_SYNC_INTERVAL", 5*time.Minute),

		WhatsAppEnabled: getEnvAsBoolOrDefault("WHATSAPP_ENABLED", false),
		WhatsAppDBPath:  getEnvOrDefault("WHATSAPP_DB_PATH", "./whatsapp.db"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		RealtorEmail: os.Getenv("REALTOR_EMAIL"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBoolOrDefault("LOG_PRETTY", false),
	}

	return cfg
}

// SheetSyncEnabled reports whether enough is configured to reach the spreadsheet.
func (c *Config) SheetSyncEnabled() bool {
	return c.SheetID != "" && c.GoogleServiceAccountFile != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault accepts Go durations ("90s", "5m") or plain seconds.
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
