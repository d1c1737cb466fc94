package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a completion contains no JSON value.
var ErrNoJSON = errors.New("no JSON value in completion")

// ExtractJSON isolates the JSON value in a completion. Models often wrap it in
// a ```json fence or surround it with prose; the outermost object or array is
// kept.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "{[")
	if open < 0 {
		return "", ErrNoJSON
	}
	closer := "}"
	if s[open] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < open {
		return "", ErrNoJSON
	}
	return s[open : end+1], nil
}

// DecodeJSON extracts and decodes the JSON value in a completion into v.
func DecodeJSON(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}
