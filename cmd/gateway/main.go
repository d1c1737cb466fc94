package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/idempotency"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/interview"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/llm"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/voice"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/ws"
)

// backend is a document store that also keeps the call journal.
type backend interface {
	store.Repository
	store.Journal
}

func main() {
	cfg := loadConfig()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel})))

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db := openStore(initCtx, cfg)
	claimer := openClaimer(initCtx, cfg)
	initCancel()
	defer db.Close()

	// LLM engines
	hasOpenAI := cfg.llmAPIKey != "" || cfg.llmBaseURL != ""
	configured := map[string]bool{
		"ollama":    true,
		"openai":    hasOpenAI,
		"anthropic": cfg.anthropicAPIKey != "",
	}
	engine := cfg.llmEngine
	if !configured[engine] {
		slog.Warn("llm engine not configured, falling back to ollama", "engine", engine)
		engine = "ollama"
	}
	agentLLM := llm.NewAgentLLM(engine, cfg.llmMaxTokens)
	ollama := llm.NewOllamaClient(cfg.ollamaURL, cfg.ollamaModel, cfg.llmMaxTokens, cfg.llmPoolSize)
	agentLLM.RegisterRaw("ollama", ollama, cfg.ollamaModel)
	if configured["anthropic"] {
		agentLLM.RegisterRaw("anthropic", llm.NewAnthropicClient(cfg.anthropicAPIKey, cfg.anthropicURL, cfg.anthropicModel, cfg.llmMaxTokens, cfg.llmPoolSize), cfg.anthropicModel)
	}
	if hasOpenAI {
		agentLLM.Register("openai", llm.NewOpenAIProvider(cfg.llmAPIKey, cfg.llmBaseURL), cfg.llmModel)
	}

	svc := interview.NewService(db, agentLLM)
	services := interview.NewSessionServices(svc)

	handler := ws.NewHandler(ws.HandlerConfig{
		NewChannel: func() voice.Channel {
			return voice.NewWSChannel(voice.WSConfig{
				URL:         cfg.voiceURL,
				APIKey:      cfg.voiceAPIKey,
				DialRetries: cfg.voiceDialRetries,
			})
		},
		Agent:          voice.Interviewer,
		Generator:      services,
		Resume:         services,
		Feedback:       services,
		Claimer:        claimer,
		Journal:        db,
		MaxConcurrent:  cfg.maxConcurrentSessions,
		MaxResumeBytes: cfg.maxResumeBytes,
		ServiceTimeout: cfg.serviceTimeout,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		svc:            svc,
		journal:        db,
		wsHandler:      handler,
		maxResumeBytes: int64(cfg.maxResumeBytes),
		models: modelCatalog{
			active:      engine,
			engines:     agentLLM.Engines(),
			ollamaModel: cfg.ollamaModel,
			ollama:      ollama,
		},
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("gateway starting", "addr", addr,
		"max_concurrent", cfg.maxConcurrentSessions,
		"llm_engines", agentLLM.Engines(),
		"voice_url", cfg.voiceURL)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}

// openStore connects to Postgres when DATABASE_URL is set and keeps documents
// in memory otherwise.
func openStore(ctx context.Context, cfg config) backend {
	if cfg.databaseURL == "" {
		slog.Info("using in-memory store")
		return store.NewMemory()
	}
	pg, err := store.Open(ctx, cfg.databaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	slog.Info("postgres store enabled")
	return pg
}

// openClaimer shares feedback claims through Redis when REDIS_URL is set.
func openClaimer(ctx context.Context, cfg config) session.Claimer {
	if cfg.redisURL == "" {
		return idempotency.NewMemory()
	}
	r, err := idempotency.Dial(ctx, cfg.redisURL)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory claims", "error", err)
		return idempotency.NewMemory()
	}
	slog.Info("redis claims enabled")
	return r
}
