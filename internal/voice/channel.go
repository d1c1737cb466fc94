// Package voice connects an interview session to a hosted voice agent.
//
// The session treats the voice agent as an opaque bidirectional channel: it
// receives lifecycle and transcript events and can start, prime and stop the
// call. Transport details stay behind the Channel interface.
package voice

import (
	"context"
	"sync"
)

// EventType names an inbound channel event.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventTranscript  EventType = "transcript"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventError       EventType = "error"
)

// Event is one inbound notification from the voice agent.
type Event struct {
	Type  EventType
	Role  string // transcript speaker role as reported by the provider
	Text  string
	Final bool // transcript finality; partial transcripts are informational
	Err   error
}

// AgentConfig describes the assistant the provider should run.
type AgentConfig struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Voice        string `json:"voice"`
}

// Message is a structured message pushed into a running call.
type Message struct {
	Type           string            `json:"type"`
	Role           string            `json:"role,omitempty"`
	Content        string            `json:"content,omitempty"`
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// Handler receives channel events.
type Handler func(Event)

// Channel is a voice call transport.
type Channel interface {
	// Start opens the call with the given assistant and template variables.
	Start(ctx context.Context, agent AgentConfig, variables map[string]string) error
	// Send pushes a structured message into the running call.
	Send(ctx context.Context, msg Message) error
	// Stop tears the call down. Calling Stop on a stopped channel is a no-op.
	Stop() error
	// Subscribe registers h for all subsequent events. The returned function
	// removes the registration and is safe to call more than once.
	Subscribe(h Handler) (unsubscribe func())
}

// Hub is a subscriber registry that transports embed to fan out events.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
}

// Subscribe registers h and returns an idempotent unsubscribe function.
func (h *Hub) Subscribe(fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[int]Handler)
	}
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	handlers := make([]Handler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribers returns the number of live registrations.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}
