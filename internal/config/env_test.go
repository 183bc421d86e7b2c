package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"DB_PATH", "HTTP_PORT", "CONTEXT_TURNS", "EXTRACTION_TIMEOUT", "SHEET_ID", "TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, "./realtor.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 6, cfg.ContextTurns)
	assert.Equal(t, 20*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.False(t, cfg.SheetSyncEnabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("EXTRACTION_TIMEOUT", "5s")
	t.Setenv("SHEET_SYNC_INTERVAL", "120")
	t.Setenv("SHEET_ID", "sheet-123")
	t.Setenv("WHATSAPP_ENABLED", "true")

	cfg := LoadFromEnv()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, 2*time.Minute, cfg.SheetSyncInterval)
	assert.True(t, cfg.WhatsAppEnabled)
	assert.True(t, cfg.SheetSyncEnabled())
}

func TestGetEnvAsDurationOrDefault_Invalid(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvAsDurationOrDefault("SOME_DURATION", time.Minute))

	t.Setenv("SOME_DURATION", "-5s")
	assert.Equal(t, time.Minute, getEnvAsDurationOrDefault("SOME_DURATION", time.Minute))
}
