// Package transcript holds the ordered utterance log of one interview session.
package transcript

import (
	"fmt"
	"strings"
)

// Speaker identifies who produced an utterance.
type Speaker string

const (
	Participant Speaker = "participant"
	Agent       Speaker = "agent"
	System      Speaker = "system"
)

// SpeakerFromRole maps a voice provider role ("user", "assistant", "system")
// to a Speaker. Unknown roles are attributed to the system.
func SpeakerFromRole(role string) Speaker {
	switch strings.ToLower(role) {
	case "user", "participant":
		return Participant
	case "assistant", "agent", "bot":
		return Agent
	default:
		return System
	}
}

// Role returns the role name the scoring service expects.
func (s Speaker) Role() string {
	switch s {
	case Participant:
		return "user"
	case Agent:
		return "assistant"
	default:
		return "system"
	}
}

// Entry is one finalized utterance.
type Entry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Log is an append-only, arrival-ordered list of entries.
// It is owned by a single session and is not safe for concurrent use.
type Log struct {
	entries []Entry
}

// Append adds an entry. Identical repeated utterances are kept.
func (l *Log) Append(e Entry) {
	l.entries = append(l.entries, e)
}

// Latest returns the most recent entry, or false if the log is empty.
func (l *Log) Latest() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Snapshot returns a copy of the full history. Later appends do not affect it.
func (l *Log) Snapshot() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset drops all entries. Only session teardown calls it.
func (l *Log) Reset() {
	l.entries = nil
}

// Format renders entries as "- role: text" lines for an LLM prompt.
func Format(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.Speaker.Role(), e.Text)
	}
	return b.String()
}
