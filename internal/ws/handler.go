// Package ws serves the browser side of an interview session over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/trace"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/voice"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the collaborators shared by all interview sessions.
type HandlerConfig struct {
	NewChannel     func() voice.Channel
	Agent          voice.AgentConfig
	Generator      session.Generator
	Resume         session.ResumeAnalyzer
	Feedback       session.FeedbackScorer
	Claimer        session.Claimer
	Journal        store.Journal
	MaxConcurrent  int
	MaxResumeBytes int
	ServiceTimeout time.Duration
	// MetadataTimeout bounds the wait for the first frame after upgrade.
	MetadataTimeout time.Duration
}

// Handler manages websocket interview sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a websocket handler with shared collaborators and a
// concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = 5 << 20
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 10 * time.Second
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// sessionMetadata is the first text frame sent by the client.
type sessionMetadata struct {
	UserName    string   `json:"userName"`
	UserID      string   `json:"userId"`
	Type        string   `json:"type"`
	InterviewID string   `json:"interviewId"`
	FeedbackID  string   `json:"feedbackId"`
	Questions   []string `json:"questions"`
}

// Client actions.
const (
	ActionStart           = "start"
	ActionDisconnect      = "disconnect"
	ActionRetryGeneration = "retry_generation"
	ActionUploadResume    = "upload_resume"
)

// clientAction is every frame after the metadata. Content is base64 in JSON.
type clientAction struct {
	Action   string `json:"action"`
	Filename string `json:"filename,omitempty"`
	Content  []byte `json:"content,omitempty"`
}

// ServeHTTP upgrades the connection and runs the interview session.
// Returns 503 if at max concurrent session capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	defer metrics.SessionsActive.Dec()

	h.runSession(conn)
}

// connection is the state of one browser socket. A socket may outlive
// several sessions: starting again after a finished call replaces the session.
type connection struct {
	h       *Handler
	meta    *sessionMetadata
	mode    session.Mode
	channel voice.Channel
	send    func(any)
	tracer  *trace.Tracer
	current *session.Session
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := readMetadata(conn, h.cfg.MetadataTimeout)
	if err != nil {
		slog.Error("read metadata", "error", err)
		return
	}
	send := newSender(conn)

	mode, err := modeFor(meta)
	if err != nil {
		send(errorFrame(err))
		return
	}

	c := &connection{
		h:       h,
		meta:    meta,
		mode:    mode,
		channel: h.cfg.NewChannel(),
		send:    send,
	}
	defer c.release()
	if err = c.replaceSession(); err != nil {
		send(errorFrame(err))
		return
	}
	defer c.close()

	slog.Info("interview session opened", "session_id", c.current.ID(), "mode", string(mode), "user_id", meta.UserID)
	processActions(ctx, conn, c)
	slog.Info("interview connection closed", "user_id", meta.UserID)
}

func modeFor(meta *sessionMetadata) (session.Mode, error) {
	if meta.Type == "" {
		if meta.InterviewID != "" {
			return session.ModeQuestions, nil
		}
		return session.ModeVoiceSetup, nil
	}
	return session.ParseMode(meta.Type)
}

// replaceSession closes the current session, if any, and opens a fresh one on
// the same voice channel.
func (c *connection) replaceSession() error {
	c.close()

	id := uuid.NewString()
	tracer := trace.NewTracer(c.h.cfg.Journal, store.Call{
		ID:          id,
		UserID:      c.meta.UserID,
		Mode:        string(c.mode),
		InterviewID: c.meta.InterviewID,
	})

	sess, err := session.New(session.Config{
		ID:             id,
		Mode:           c.mode,
		UserName:       c.meta.UserName,
		ParticipantID:  c.meta.UserID,
		InterviewID:    c.meta.InterviewID,
		FeedbackID:     c.meta.FeedbackID,
		Questions:      c.meta.Questions,
		Channel:        c.channel,
		Agent:          c.h.cfg.Agent,
		Generator:      c.h.cfg.Generator,
		Resume:         c.h.cfg.Resume,
		Feedback:       c.h.cfg.Feedback,
		Claimer:        c.h.cfg.Claimer,
		ServiceTimeout: c.h.cfg.ServiceTimeout,
		OnUpdate: func(u session.Update) {
			c.send(u)
			tracer.Record(string(u.Type), updateDetail(u))
		},
	})
	if err != nil {
		tracer.Close()
		return err
	}
	c.current = sess
	c.tracer = tracer

	c.send(sessionFrame{Type: "session", SessionID: id, Mode: c.mode})
	return nil
}

func updateDetail(u session.Update) string {
	switch u.Type {
	case session.UpdateStatus:
		return string(u.Status)
	case session.UpdateTranscript:
		return string(u.Speaker) + ": " + u.Text
	case session.UpdateInterview:
		return u.InterviewID
	case session.UpdateNavigate:
		return u.Path
	}
	return u.Text
}

func (c *connection) close() {
	if c.current == nil {
		return
	}
	c.current.Close()
	c.tracer.End(c.current.InterviewID())
	c.tracer.Close()
	c.current = nil
	c.tracer = nil
}

// release stops the voice channel. The connection owns it across session
// replacements, so the upstream socket is closed however the call ended.
func (c *connection) release() {
	if err := c.channel.Stop(); err != nil {
		slog.Warn("voice channel stop", "error", err)
	}
}

// processActions reads client actions until the socket closes.
func processActions(ctx context.Context, conn *websocket.Conn, c *connection) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var act clientAction
		if err = json.Unmarshal(data, &act); err != nil {
			c.send(errorFrame(fmt.Errorf("invalid action: %w", err)))
			continue
		}
		if err = c.dispatch(ctx, act); err != nil && !silent(err) {
			slog.Warn("action failed", "action", act.Action, "error", err)
			c.send(errorFrame(err))
		}
	}
}

func (c *connection) dispatch(ctx context.Context, act clientAction) error {
	if c.current == nil {
		return errors.New("no open session")
	}
	switch act.Action {
	case ActionStart:
		err := c.current.Start(ctx)
		if !errors.Is(err, session.ErrSessionFinished) {
			return err
		}
		if err = c.replaceSession(); err != nil {
			return err
		}
		return c.current.Start(ctx)
	case ActionDisconnect:
		return c.current.Disconnect()
	case ActionRetryGeneration:
		return c.current.RetryGeneration()
	case ActionUploadResume:
		if len(act.Content) > c.h.cfg.MaxResumeBytes {
			return fmt.Errorf("resume exceeds %d bytes", c.h.cfg.MaxResumeBytes)
		}
		return c.current.UploadResume(session.ResumeDocument{Filename: act.Filename, Content: act.Content})
	}
	return fmt.Errorf("unknown action %q", act.Action)
}

// silent reports errors the session has already shown to the user, or that
// are suppressed re-entrant requests.
func silent(err error) bool {
	return errors.Is(err, session.ErrChannelOpen) ||
		errors.Is(err, session.ErrMissingDocument) ||
		errors.Is(err, session.ErrUploadInProgress)
}

type sessionFrame struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	Mode      session.Mode `json:"mode"`
}

func errorFrame(err error) session.Update {
	return session.Update{Type: session.UpdateError, Text: err.Error()}
}

func newSender(conn *websocket.Conn) func(any) {
	var mu sync.Mutex
	return func(v any) {
		mu.Lock()
		defer mu.Unlock()

		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Debug("write update", "error", err)
		}
	}
}

func readMetadata(conn *websocket.Conn, timeout time.Duration) (*sessionMetadata, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err = conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	var meta sessionMetadata
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
