package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfig()
	assert.Equal(t, "8000", cfg.port)
	assert.Equal(t, slog.LevelInfo, cfg.logLevel)
	assert.Equal(t, "ollama", cfg.llmEngine)
	assert.Equal(t, uint64(3), cfg.voiceDialRetries)
	assert.Equal(t, 60*time.Second, cfg.serviceTimeout)
	assert.Equal(t, 5<<20, cfg.maxResumeBytes)
	assert.Empty(t, cfg.databaseURL)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LLM_ENGINE", "OpenAI")
	t.Setenv("MAX_CONCURRENT_SESSIONS", "7")
	t.Setenv("SERVICE_TIMEOUT", "15s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := loadConfig()
	assert.Equal(t, "9100", cfg.port)
	assert.Equal(t, slog.LevelDebug, cfg.logLevel)
	assert.Equal(t, "openai", cfg.llmEngine)
	assert.Equal(t, 7, cfg.maxConcurrentSessions)
	assert.Equal(t, 15*time.Second, cfg.serviceTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.redisURL)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}
