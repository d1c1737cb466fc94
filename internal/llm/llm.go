// Package llm produces text completions for the interview services.
package llm

import (
	"context"
	"net/http"
	"time"
)

// Completer returns a full completion for a system prompt and a user prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (*Result, error)
}

// Result holds the complete LLM response with timing.
type Result struct {
	Text               string  `json:"text"`
	LatencyMs          float64 `json:"latency_ms"`
	TimeToFirstTokenMs float64 `json:"ttft_ms"`
}

// ChatClient streams chat completions outside the agents SDK.
type ChatClient interface {
	Chat(ctx context.Context, system, prompt, model string) (*Result, error)
}

// NewPooledHTTPClient creates an http.Client with connection pooling and tuned transport.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

func sinceMs(start, t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Sub(start).Milliseconds())
}
