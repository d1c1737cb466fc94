package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type config struct {
	port                  string
	logLevel              slog.Level
	voiceURL              string
	voiceAPIKey           string
	voiceDialRetries      uint64
	llmEngine             string
	llmBaseURL            string
	llmAPIKey             string
	llmModel              string
	llmMaxTokens          int
	llmPoolSize           int
	ollamaURL             string
	ollamaModel           string
	anthropicAPIKey       string
	anthropicURL          string
	anthropicModel        string
	databaseURL           string
	redisURL              string
	maxConcurrentSessions int
	serviceTimeout        time.Duration
	maxResumeBytes        int
}

func loadConfig() config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GATEWAY_PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VOICE_URL", "ws://localhost:8090/call")
	v.SetDefault("VOICE_API_KEY", "")
	v.SetDefault("VOICE_DIAL_RETRIES", 3)
	v.SetDefault("LLM_ENGINE", "ollama")
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_MAX_TOKENS", 1024)
	v.SetDefault("LLM_POOL_SIZE", 50)
	v.SetDefault("OLLAMA_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3.2:3b")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("ANTHROPIC_URL", "https://api.anthropic.com")
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("MAX_CONCURRENT_SESSIONS", 100)
	v.SetDefault("SERVICE_TIMEOUT", "60s")
	v.SetDefault("MAX_RESUME_BYTES", 5<<20)

	return config{
		port:                  v.GetString("GATEWAY_PORT"),
		logLevel:              parseLevel(v.GetString("LOG_LEVEL")),
		voiceURL:              v.GetString("VOICE_URL"),
		voiceAPIKey:           v.GetString("VOICE_API_KEY"),
		voiceDialRetries:      uint64(v.GetInt("VOICE_DIAL_RETRIES")),
		llmEngine:             strings.ToLower(v.GetString("LLM_ENGINE")),
		llmBaseURL:            v.GetString("LLM_BASE_URL"),
		llmAPIKey:             v.GetString("LLM_API_KEY"),
		llmModel:              v.GetString("LLM_MODEL"),
		llmMaxTokens:          v.GetInt("LLM_MAX_TOKENS"),
		llmPoolSize:           v.GetInt("LLM_POOL_SIZE"),
		ollamaURL:             v.GetString("OLLAMA_URL"),
		ollamaModel:           v.GetString("OLLAMA_MODEL"),
		anthropicAPIKey:       v.GetString("ANTHROPIC_API_KEY"),
		anthropicURL:          v.GetString("ANTHROPIC_URL"),
		anthropicModel:        v.GetString("ANTHROPIC_MODEL"),
		databaseURL:           v.GetString("DATABASE_URL"),
		redisURL:              v.GetString("REDIS_URL"),
		maxConcurrentSessions: v.GetInt("MAX_CONCURRENT_SESSIONS"),
		serviceTimeout:        v.GetDuration("SERVICE_TIMEOUT"),
		maxResumeBytes:        v.GetInt("MAX_RESUME_BYTES"),
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
