package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient streams completions from the Anthropic Messages API.
type AnthropicClient struct {
	apiKey    string
	url       string
	model     string
	maxTokens int
	client    *http.Client
}

func NewAnthropicClient(apiKey, url, model string, maxTokens, poolSize int) *AnthropicClient {
	if url == "" {
		url = "https://api.anthropic.com"
	}
	return &AnthropicClient{
		apiKey:    apiKey,
		url:       strings.TrimRight(url, "/"),
		model:     model,
		maxTokens: maxTokens,
		client:    NewPooledHTTPClient(poolSize, 120*time.Second),
	}
}

// Complete implements Completer with the client's default model.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (*Result, error) {
	return c.Chat(ctx, system, prompt, "")
}

// Chat sends the prompt as a single user message and streams the reply.
func (c *AnthropicClient) Chat(ctx context.Context, system, prompt, model string) (*Result, error) {
	start := time.Now()
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		Stream:    true,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("anthropic status %d: %s", resp.StatusCode, errBody)
	}

	text, ttft, err := consumeAnthropicStream(resp.Body)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "stream").Inc()
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	return &Result{
		Text:               text,
		LatencyMs:          float64(time.Since(start).Milliseconds()),
		TimeToFirstTokenMs: sinceMs(start, ttft),
	}, nil
}

// consumeAnthropicStream collects text deltas from the server-sent events
// until message_stop. Thinking deltas are dropped.
func consumeAnthropicStream(r io.Reader) (string, time.Time, error) {
	var text strings.Builder
	var ttft time.Time
	var event string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			event = name
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		switch event {
		case "message_stop":
			return text.String(), ttft, nil
		case "error":
			var e anthropicErrorEvent
			json.Unmarshal([]byte(data), &e)
			return "", ttft, fmt.Errorf("%s: %s", e.Error.Type, e.Error.Message)
		case "content_block_delta":
			var ev anthropicDeltaEvent
			if json.Unmarshal([]byte(data), &ev) != nil || ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
				continue
			}
			if ttft.IsZero() {
				ttft = time.Now()
			}
			text.WriteString(ev.Delta.Text)
		}
	}
	return text.String(), ttft, scanner.Err()
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicDeltaEvent struct {
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta"`
}

type anthropicErrorEvent struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
