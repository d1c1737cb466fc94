package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// line is one scripted utterance.
type line struct {
	Role string
	Text string
}

// defaultScript answers the setup questions and then one interview question.
var defaultScript = []line{
	{Role: "assistant", Text: "Hi! What role are you interviewing for?"},
	{Role: "user", Text: "I want a developer role"},
	{Role: "assistant", Text: "Which type of interview?"},
	{Role: "user", Text: "A technical interview please"},
	{Role: "assistant", Text: "What is your experience level?"},
	{Role: "user", Text: "I am a junior"},
	{Role: "assistant", Text: "Which tech stack?"},
	{Role: "user", Text: "Mostly golang and postgres"},
	{Role: "assistant", Text: "How many questions?"},
	{Role: "user", Text: "Let's do 3 questions"},
	{Role: "assistant", Text: "Great, tell me about a project you are proud of."},
	{Role: "user", Text: "I built a job queue on top of postgres."},
}

// parseScript reads "role: text" lines. Blank lines and lines starting with
// # are skipped.
func parseScript(r io.Reader) ([]line, error) {
	var out []line
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		role, text, ok := strings.Cut(raw, ":")
		role = strings.ToLower(strings.TrimSpace(role))
		text = strings.TrimSpace(text)
		if !ok || text == "" {
			return nil, fmt.Errorf("script line %d: want \"role: text\"", n)
		}
		switch role {
		case "user", "assistant", "system":
		default:
			return nil, fmt.Errorf("script line %d: unknown role %q", n, role)
		}
		out = append(out, line{Role: role, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("script is empty")
	}
	return out, nil
}

func loadScript(path string) ([]line, error) {
	if path == "" {
		return defaultScript, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseScript(f)
}
