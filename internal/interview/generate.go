package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/llm"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/prompts"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
)

const (
	defaultKind   = "technical"
	defaultRole   = "developer"
	defaultLevel  = "junior"
	defaultAmount = 5
	maxAmount     = 20
)

// Count is a question count that decodes from a JSON number or string.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*c = Count(n)
	return nil
}

// GenerateRequest is the body of POST /api/vapi/generate.
type GenerateRequest struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	TechStack string `json:"techstack"`
	Amount    Count  `json:"amount"`
	UserID    string `json:"userid"`
}

func (r GenerateRequest) withDefaults() GenerateRequest {
	r.Type = orDefault(r.Type, defaultKind)
	r.Role = orDefault(r.Role, defaultRole)
	r.Level = orDefault(r.Level, defaultLevel)
	r.TechStack = strings.TrimSpace(r.TechStack)
	switch {
	case r.Amount <= 0:
		r.Amount = defaultAmount
	case r.Amount > maxAmount:
		r.Amount = maxAmount
	}
	return r
}

// Generated is the result of a generation call.
type Generated struct {
	InterviewID string   `json:"interviewId"`
	Questions   []string `json:"questions"`
}

// Generate asks the LLM for questions and stores a finalized interview.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Generated, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: userid", ErrMissingField)
	}
	req = req.withDefaults()

	start := time.Now()
	res, err := s.llm.Complete(ctx, prompts.GenerationSystem,
		prompts.Generation(req.Role, req.Level, req.TechStack, req.Type, int(req.Amount)))
	if err != nil {
		metrics.Errors.WithLabelValues("generation", "llm").Inc()
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions, fallback := ParseQuestions(res.Text)
	if fallback {
		metrics.FallbackUsed.WithLabelValues("generation").Inc()
		s.log.Warn("unparseable question list, using fallback", "raw_len", len(res.Text))
	}

	iv := &store.Interview{
		UserID:     req.UserID,
		Role:       req.Role,
		Type:       req.Type,
		Level:      req.Level,
		TechStack:  splitTechStack(req.TechStack),
		Questions:  questions,
		Finalized:  true,
		CoverImage: s.cover(),
	}
	if err = s.repo.CreateInterview(ctx, iv); err != nil {
		return nil, fmt.Errorf("store interview: %w", err)
	}

	s.log.Info("interview generated", "interview_id", iv.ID, "user_id", req.UserID,
		"questions", len(questions), "duration_ms", time.Since(start).Milliseconds())
	return &Generated{InterviewID: iv.ID, Questions: questions}, nil
}

// ParseQuestions reads a question list from model output. A JSON array is
// preferred; otherwise non-empty lines are used with list markers removed.
// The boolean reports that neither worked and the fixed list was returned.
func ParseQuestions(text string) ([]string, bool) {
	var list []string
	if err := llm.DecodeJSON(text, &list); err == nil {
		if qs := cleanQuestions(list); len(qs) > 0 {
			return qs, false
		}
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") || line == "[" || line == "]" {
			continue
		}
		lines = append(lines, stripMarker(line))
	}
	if qs := cleanQuestions(lines); len(qs) > 0 {
		return qs, false
	}
	return append([]string(nil), session.FallbackQuestions...), true
}

func cleanQuestions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(strings.Trim(strings.TrimSpace(q), `",`))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// stripMarker removes "1.", "2)", "-", "*" style list prefixes.
func stripMarker(line string) string {
	line = strings.TrimLeft(line, "-*• ")
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}

func splitTechStack(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// MarshalJSON keeps Count a plain number on the wire.
func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(c))
}
