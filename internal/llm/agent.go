package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
)

// AgentLLM routes completions to an engine through the openai-agents-go SDK.
// Engines registered via RegisterRaw bypass the SDK and use a direct HTTP client.
type AgentLLM struct {
	providers  map[string]agents.ModelProvider
	rawClients map[string]ChatClient
	models     map[string]string // engine → default model
	fallback   string
	maxTokens  int
}

// NewAgentLLM creates an AgentLLM. Complete uses the fallback engine.
func NewAgentLLM(fallback string, maxTokens int) *AgentLLM {
	return &AgentLLM{
		providers:  make(map[string]agents.ModelProvider),
		rawClients: make(map[string]ChatClient),
		models:     make(map[string]string),
		fallback:   fallback,
		maxTokens:  maxTokens,
	}
}

// NewOpenAIProvider builds an SDK provider for an OpenAI-compatible chat
// completions endpoint. An empty baseURL uses the OpenAI default.
func NewOpenAIProvider(apiKey, baseURL string) agents.ModelProvider {
	params := agents.OpenAIProviderParams{
		APIKey:       param.NewOpt(apiKey),
		UseResponses: param.NewOpt(false),
	}
	if baseURL != "" {
		params.BaseURL = param.NewOpt(baseURL)
	}
	return agents.NewOpenAIProvider(params)
}

// Register adds an SDK provider and default model for the given engine name.
func (a *AgentLLM) Register(engine string, provider agents.ModelProvider, defaultModel string) {
	a.providers[engine] = provider
	a.models[engine] = defaultModel
}

// RegisterRaw adds a direct HTTP client for engines that bypass the SDK.
func (a *AgentLLM) RegisterRaw(engine string, client ChatClient, defaultModel string) {
	a.rawClients[engine] = client
	a.models[engine] = defaultModel
}

// Engines returns the sorted names of all registered backends.
func (a *AgentLLM) Engines() []string {
	seen := make(map[string]bool, len(a.providers)+len(a.rawClients))
	names := make([]string, 0, len(a.providers)+len(a.rawClients))
	for k := range a.providers {
		seen[k] = true
		names = append(names, k)
	}
	for k := range a.rawClients {
		if !seen[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Complete implements Completer on the fallback engine.
func (a *AgentLLM) Complete(ctx context.Context, system, prompt string) (*Result, error) {
	return a.complete(ctx, a.fallback, "", system, prompt)
}

// complete runs a single-turn streamed completion on engine and collects the
// deltas.
func (a *AgentLLM) complete(ctx context.Context, engine, model, system, prompt string) (*Result, error) {
	start := time.Now()
	defer func() { metrics.LLMDuration.Observe(time.Since(start).Seconds()) }()

	if raw, ok := a.rawClients[engine]; ok {
		if model == "" {
			model = a.models[engine]
		}
		return raw.Chat(ctx, system, prompt, model)
	}

	provider, useModel, err := a.resolve(engine, model)
	if err != nil {
		return nil, err
	}

	agent := agents.New("interviewer").
		WithInstructions(system).
		WithModel(useModel).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(a.maxTokens)),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	events, errCh, err := runner.RunStreamedChan(ctx, agent, prompt)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "start").Inc()
		return nil, fmt.Errorf("llm stream start: %w", err)
	}

	var text strings.Builder
	var ttft time.Time
	for ev := range events {
		delta, ok := textDelta(ev)
		if !ok {
			continue
		}
		if ttft.IsZero() {
			ttft = time.Now()
		}
		text.WriteString(delta)
	}

	if streamErr := <-errCh; streamErr != nil {
		metrics.Errors.WithLabelValues("llm", "stream").Inc()
		return nil, fmt.Errorf("llm stream: %w", streamErr)
	}

	return &Result{
		Text:               text.String(),
		LatencyMs:          float64(time.Since(start).Milliseconds()),
		TimeToFirstTokenMs: sinceMs(start, ttft),
	}, nil
}

func textDelta(ev agents.StreamEvent) (string, bool) {
	raw, ok := ev.(agents.RawResponsesStreamEvent)
	if !ok || raw.Data.Type != "response.output_text.delta" {
		return "", false
	}
	return raw.Data.Delta, true
}

func (a *AgentLLM) resolve(engine, model string) (agents.ModelProvider, string, error) {
	provider, ok := a.providers[engine]
	if !ok {
		provider, ok = a.providers[a.fallback]
	}
	if !ok {
		return nil, "", fmt.Errorf("no llm provider for engine %q", engine)
	}

	if model != "" {
		return provider, model, nil
	}
	model = a.models[engine]
	if model == "" {
		model = a.models[a.fallback]
	}
	return provider, model, nil
}
