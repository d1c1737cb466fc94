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

// OllamaClient streams chat completions from Ollama's native /api/chat.
type OllamaClient struct {
	url       string
	model     string
	maxTokens int
	client    *http.Client
}

func NewOllamaClient(url, model string, maxTokens, poolSize int) *OllamaClient {
	return &OllamaClient{
		url:       strings.TrimRight(url, "/"),
		model:     model,
		maxTokens: maxTokens,
		client:    NewPooledHTTPClient(poolSize, 120*time.Second),
	}
}

// Complete implements Completer with the client's default model.
func (c *OllamaClient) Complete(ctx context.Context, system, prompt string) (*Result, error) {
	return c.Chat(ctx, system, prompt, "")
}

// Chat sends one system and one user message and streams the reply.
func (c *OllamaClient) Chat(ctx context.Context, system, prompt, model string) (*Result, error) {
	start := time.Now()

	resp, err := c.post(ctx, system, prompt, model)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, body)
	}

	text, ttft, err := consumeOllamaStream(resp.Body)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "stream").Inc()
		return nil, fmt.Errorf("ollama stream: %w", err)
	}

	return &Result{
		Text:               text,
		LatencyMs:          float64(time.Since(start).Milliseconds()),
		TimeToFirstTokenMs: sinceMs(start, ttft),
	}, nil
}

// Models lists the installed chat models, skipping embedding models.
func (c *OllamaClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode ollama tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if !strings.Contains(m.Name, "embed") {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func (c *OllamaClient) post(ctx context.Context, system, prompt, model string) (*http.Response, error) {
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(ollamaRequest{
		Model:   model,
		Stream:  true,
		Options: ollamaOptions{NumPredict: c.maxTokens},
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	return resp, nil
}

// consumeOllamaStream reads NDJSON chunks until done. Thinking tokens are
// dropped; undecodable lines are skipped.
func consumeOllamaStream(r io.Reader) (string, time.Time, error) {
	var text strings.Builder
	var ttft time.Time
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var chunk ollamaStreamChunk
		if json.Unmarshal(scanner.Bytes(), &chunk) != nil {
			continue
		}
		if chunk.Error != "" {
			return "", ttft, fmt.Errorf("%s", chunk.Error)
		}
		if chunk.Done {
			break
		}
		if chunk.Message.Content == "" {
			continue
		}
		if ttft.IsZero() {
			ttft = time.Now()
		}
		text.WriteString(chunk.Message.Content)
	}
	return text.String(), ttft, scanner.Err()
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict"`
}

type ollamaStreamChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}
