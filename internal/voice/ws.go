package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// Frame types sent to the provider.
const (
	FrameStart = "start"
	FrameSend  = "send"
	FrameStop  = "stop"
)

// Frame is the JSON envelope exchanged with the voice provider in both
// directions. Outbound frames use Assistant, VariableValues and Message;
// inbound frames use the event fields.
type Frame struct {
	Type           string            `json:"type"`
	Role           string            `json:"role,omitempty"`
	TranscriptType string            `json:"transcriptType,omitempty"`
	Transcript     string            `json:"transcript,omitempty"`
	Error          string            `json:"error,omitempty"`
	Assistant      *AgentConfig      `json:"assistant,omitempty"`
	VariableValues map[string]string `json:"variableValues,omitempty"`
	Message        *Message          `json:"message,omitempty"`
}

// Event converts an inbound frame. Unknown frame types are reported as false.
func (f Frame) Event() (Event, bool) {
	switch EventType(f.Type) {
	case EventCallStart, EventCallEnd:
		return Event{Type: EventType(f.Type)}, true
	case EventSpeechStart, EventSpeechEnd:
		return Event{Type: EventType(f.Type), Role: f.Role}, true
	case EventTranscript:
		return Event{
			Type:  EventTranscript,
			Role:  f.Role,
			Text:  f.Transcript,
			Final: f.TranscriptType == "final",
		}, true
	case EventError:
		return Event{Type: EventError, Err: errors.New(f.Error)}, true
	}
	return Event{}, false
}

// WSConfig configures a websocket voice channel.
type WSConfig struct {
	URL              string
	APIKey           string
	DialRetries      uint64
	HandshakeTimeout time.Duration
}

// WSChannel is a Channel backed by a websocket to the voice provider.
type WSChannel struct {
	cfg    WSConfig
	dialer *websocket.Dialer
	hub    Hub

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
}

// NewWSChannel creates an unconnected channel. The socket is dialed on Start.
func NewWSChannel(cfg WSConfig) *WSChannel {
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WSChannel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
			ReadBufferSize:   16384,
			WriteBufferSize:  16384,
		},
	}
}

// Subscribe implements Channel.
func (c *WSChannel) Subscribe(h Handler) func() {
	return c.hub.Subscribe(h)
}

// Start dials the provider if needed and starts the call. A channel that is
// already connected restarts the call on the same socket.
func (c *WSChannel) Start(ctx context.Context, agent AgentConfig, variables map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}
		c.conn = conn
		go c.readLoop(conn)
	}

	frame := Frame{Type: FrameStart, Assistant: &agent, VariableValues: variables}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.closeLocked()
		return fmt.Errorf("voice start: %w", err)
	}
	return nil
}

func (c *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	var conn *websocket.Conn
	op := func() error {
		var err error
		conn, _, err = c.dialer.DialContext(ctx, c.cfg.URL, header)
		if err != nil {
			slog.Warn("voice dial failed", "url", c.cfg.URL, "error", err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.DialRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("voice dial: %w", err)
	}
	return conn, nil
}

// Send implements Channel.
func (c *WSChannel) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("voice send: channel not started")
	}
	if err := c.conn.WriteJSON(Frame{Type: FrameSend, Message: &msg}); err != nil {
		return fmt.Errorf("voice send: %w", err)
	}
	return nil
}

// Stop implements Channel.
func (c *WSChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.WriteJSON(Frame{Type: FrameStop})
	c.closeLocked()
	return err
}

func (c *WSChannel) closeLocked() {
	conn := c.conn
	c.conn = nil
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
}

// readLoop dispatches inbound frames until the socket closes. A socket lost
// while still current is reported as an error followed by call-end.
func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			current := c.conn == conn
			if current {
				c.conn = nil
				conn.Close()
			}
			c.mu.Unlock()

			if current {
				slog.Info("voice connection lost", "error", err)
				c.hub.Publish(Event{Type: EventError, Err: err})
				c.hub.Publish(Event{Type: EventCallEnd})
			}
			return
		}

		var f Frame
		if err = json.Unmarshal(data, &f); err != nil {
			slog.Warn("voice frame decode", "error", err)
			continue
		}
		ev, ok := f.Event()
		if !ok {
			slog.Debug("voice frame ignored", "type", f.Type)
			continue
		}
		c.hub.Publish(ev)
	}
}
