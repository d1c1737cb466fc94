// Package trace records each voice call and its client-visible updates in
// the call journal without blocking the session.
package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
)

const (
	maxDetailLen = 500
	writeTimeout = 5 * time.Second
)

type traceMsg struct {
	kind        string // "call_create", "call_end", "event"
	call        store.Call
	interviewID string
	event       store.CallEvent
}

// Tracer writes journal entries asynchronously via a buffered channel.
// All methods are nil-safe (no-op on nil receiver). Entries that do not fit in
// the buffer or arrive after Close are dropped.
type Tracer struct {
	journal store.Journal
	callID  string
	ch      chan traceMsg
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewTracer creates a tracer for one call and records its start. Must call
// Close when done.
func NewTracer(journal store.Journal, call store.Call) *Tracer {
	if journal == nil {
		return nil
	}
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	t := &Tracer{
		journal: journal,
		callID:  call.ID,
		ch:      make(chan traceMsg, 64),
		done:    make(chan struct{}),
	}
	go t.drain()
	t.send(traceMsg{kind: "call_create", call: call})
	return t
}

func (t *Tracer) drain() {
	defer close(t.done)
	for msg := range t.ch {
		t.handle(msg)
	}
}

func (t *Tracer) handle(m traceMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	handlers := map[string]func() error{
		"call_create": func() error { return t.journal.CreateCall(ctx, m.call) },
		"call_end":    func() error { return t.journal.EndCall(ctx, t.callID, m.interviewID) },
		"event":       func() error { return t.journal.RecordEvent(ctx, m.event) },
	}
	fn, ok := handlers[m.kind]
	if !ok {
		return
	}
	if err := fn(); err != nil {
		slog.Warn("trace write failed", "kind", m.kind, "call_id", t.callID, "error", err)
	}
}

func (t *Tracer) send(m traceMsg) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.ch <- m:
	default:
		slog.Warn("trace buffer full, entry dropped", "kind", m.kind, "call_id", t.callID)
	}
}

// CallID returns the journal identifier of the call.
func (t *Tracer) CallID() string {
	if t == nil {
		return ""
	}
	return t.callID
}

// Record appends an event to the call.
func (t *Tracer) Record(kind, detail string) {
	if t == nil {
		return
	}
	t.send(traceMsg{
		kind: "event",
		event: store.CallEvent{
			ID:         uuid.NewString(),
			CallID:     t.callID,
			Kind:       kind,
			Detail:     truncate(detail, maxDetailLen),
			RecordedAt: time.Now().UTC(),
		},
	})
}

// End marks the call as ended, attaching the interview it produced if any.
func (t *Tracer) End(interviewID string) {
	if t == nil {
		return
	}
	t.send(traceMsg{kind: "call_end", interviewID: interviewID})
}

// Close drains pending writes and shuts down the background goroutine.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.ch)
	t.mu.Unlock()
	<-t.done
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
