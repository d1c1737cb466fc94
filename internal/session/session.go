// Package session drives one interview attempt from call start to feedback.
//
// A Session is a small state machine fed by three kinds of events: voice
// channel events, user actions (Start, Disconnect, UploadResume) and results of
// the external services. Every handler runs to completion under the session
// mutex; service calls run outside it and report back as new events. One-shot
// side effects (question generation, feedback scoring) are guarded by flags
// that are checked and set inside a single handler.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/setup"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/transcript"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/voice"
)

var (
	ErrInvalidTransition = errors.New("invalid call state transition")
	ErrSessionFinished   = errors.New("session finished")
	ErrChannelOpen       = errors.New("voice channel could not be opened")
	ErrMissingDocument   = errors.New("no resume document")
	ErrClosed            = errors.New("session closed")
	ErrSetupIncomplete   = errors.New("setup profile incomplete")
	ErrNotSetupMode      = errors.New("session is not in voice setup mode")
)

// Mode is how the session obtains its interview questions. It is fixed at creation.
type Mode string

const (
	ModeVoiceSetup Mode = "generate"
	ModeResume     Mode = "resume"
	ModeQuestions  Mode = "interview"
)

// ParseMode accepts the client-facing mode names.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeVoiceSetup:
		return ModeVoiceSetup, nil
	case ModeResume, "resume-based":
		return ModeResume, nil
	case ModeQuestions:
		return ModeQuestions, nil
	}
	return "", fmt.Errorf("unknown session mode %q", s)
}

// CallState is the state of the voice call.
type CallState string

const (
	Inactive   CallState = "INACTIVE"
	Connecting CallState = "CONNECTING"
	Active     CallState = "ACTIVE"
	Finished   CallState = "FINISHED"
)

// phase separates the parameter-gathering conversation from the interview
// proper. Feedback is only produced for the interview phase.
type phase int

const (
	phaseSetup phase = iota
	phaseInterview
)

// Config holds the collaborators and initial values for one session.
type Config struct {
	ID            string
	Mode          Mode
	UserName      string
	ParticipantID string
	InterviewID   string // pre-supplied interview, ModeQuestions only
	FeedbackID    string // existing feedback document to overwrite
	Questions     []string

	Channel   voice.Channel
	Agent     voice.AgentConfig
	Generator Generator
	Resume    ResumeAnalyzer
	Feedback  FeedbackScorer
	Claimer   Claimer // optional cross-process feedback claim

	ServiceTimeout time.Duration
	ClaimTTL       time.Duration
	OnUpdate       UpdateCallback
}

// Session is one interview attempt. Finished is terminal; restarting requires
// a new Session.
type Session struct {
	cfg Config
	log *slog.Logger

	mu          sync.Mutex
	state       CallState
	phase       phase
	interviewID string
	feedbackID  string
	questions   []string
	transcript  transcript.Log
	profile     setup.Profile
	generation  guard
	feedback    guard
	resuming    bool
	closed      bool

	unsubscribe func()
	pending     []Update
	effects     []func()
	spawn       func(func())
}

// New creates a session and subscribes it to the voice channel. The
// subscription is released when the call finishes or the session is closed.
func New(cfg Config) (*Session, error) {
	if cfg.Channel == nil {
		return nil, errors.New("session: voice channel required")
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Agent.Name == "" {
		cfg.Agent = voice.Interviewer
	}
	if cfg.ServiceTimeout <= 0 {
		cfg.ServiceTimeout = 60 * time.Second
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 24 * time.Hour
	}

	s := &Session{
		cfg:        cfg,
		log:        slog.Default().With("session_id", cfg.ID, "mode", string(cfg.Mode)),
		state:      Inactive,
		feedbackID: cfg.FeedbackID,
		spawn:      func(fn func()) { go fn() },
	}
	if cfg.Mode == ModeQuestions {
		s.phase = phaseInterview
		s.interviewID = cfg.InterviewID
		s.questions = append([]string(nil), cfg.Questions...)
	}
	s.unsubscribe = cfg.Channel.Subscribe(s.onVoiceEvent)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.cfg.ID
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	return s.cfg.Mode
}

// Start opens the voice call. On failure the session returns to Inactive and
// the caller may retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch s.state {
	case Finished:
		s.mu.Unlock()
		return ErrSessionFinished
	case Connecting, Active:
		s.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, s.state)
	}
	s.transition(Connecting)
	variables := s.startVariables()
	s.release()

	err := s.cfg.Channel.Start(ctx, s.cfg.Agent, variables)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrChannelOpen, err)
	}
	if s.state == Connecting {
		s.transition(Inactive)
	}
	metrics.Errors.WithLabelValues("voice", "open").Inc()
	s.log.Error("voice channel open failed", "error", err)
	s.emit(Update{Type: UpdateError, Text: "Could not start the call. Please try again."})
	s.release()
	return fmt.Errorf("%w: %v", ErrChannelOpen, err)
}

func (s *Session) startVariables() map[string]string {
	if s.cfg.Mode == ModeVoiceSetup && s.phase == phaseSetup {
		return map[string]string{"questions": voice.SetupPrompt(s.cfg.UserName)}
	}
	return map[string]string{"questions": voice.FormatQuestions(s.questions)}
}

// Disconnect ends the call on the user's request and releases the channel.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	live := s.state == Connecting || s.state == Active
	if live {
		s.finish("disconnect")
	}
	s.release()

	if !live {
		return nil
	}
	if err := s.cfg.Channel.Stop(); err != nil {
		s.log.Warn("voice channel stop", "error", err)
	}
	return nil
}

// Close discards the session. Results of in-flight service calls that arrive
// afterwards are ignored. Close does not produce feedback.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	live := s.state == Connecting || s.state == Active
	s.unsubscribe()
	s.transcript.Reset()
	s.pending = nil
	s.effects = nil
	s.mu.Unlock()

	if live {
		if err := s.cfg.Channel.Stop(); err != nil {
			s.log.Warn("voice channel stop", "error", err)
		}
	}
	s.log.Info("session closed")
}

// onVoiceEvent handles channel events. Events after Finished are dropped.
func (s *Session) onVoiceEvent(ev voice.Event) {
	s.mu.Lock()
	defer s.release()

	if s.closed || s.state == Finished {
		return
	}

	switch ev.Type {
	case voice.EventCallStart:
		if s.state == Connecting {
			s.transition(Active)
		}
	case voice.EventCallEnd:
		if s.state == Connecting || s.state == Active {
			s.finish("call-end")
		}
	case voice.EventTranscript:
		s.onTranscript(ev)
	case voice.EventSpeechStart:
		s.emit(Update{Type: UpdateSpeechStart})
	case voice.EventSpeechEnd:
		s.emit(Update{Type: UpdateSpeechEnd})
	case voice.EventError:
		metrics.Errors.WithLabelValues("voice", "channel").Inc()
		s.log.Error("voice channel error", "error", ev.Err)
		s.emit(Update{Type: UpdateError, Text: "Voice connection error."})
	}
}

func (s *Session) onTranscript(ev voice.Event) {
	if !ev.Final {
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	entry := transcript.Entry{Speaker: transcript.SpeakerFromRole(ev.Role), Text: text}
	s.transcript.Append(entry)
	metrics.TranscriptEntries.WithLabelValues(string(entry.Speaker)).Inc()
	s.emit(Update{Type: UpdateTranscript, Speaker: entry.Speaker, Text: entry.Text})

	if entry.Speaker == transcript.Participant {
		s.detectSetup(entry.Text)
	}
}

// transition moves the call state and notifies the client.
func (s *Session) transition(to CallState) {
	from := s.state
	s.state = to
	metrics.CallTransitions.WithLabelValues(string(to)).Inc()
	s.log.Info("call state", "from", string(from), "to", string(to))
	s.emit(Update{Type: UpdateStatus, Status: to})
}

// finish enters the terminal state, releases the channel subscription and
// triggers feedback. Reaching Finished twice is impossible, so feedback is
// requested at most once from here.
func (s *Session) finish(reason string) {
	if s.state == Finished {
		return
	}
	s.log.Info("call finished", "reason", reason, "transcript_len", s.transcript.Len())
	s.transition(Finished)
	s.unsubscribe()
	s.requestFeedback()
}

// emit queues an update; it is delivered after the mutex is released.
func (s *Session) emit(u Update) {
	s.pending = append(s.pending, u)
}

// after queues a function to run outside the mutex, typically a service call.
func (s *Session) after(fn func()) {
	s.effects = append(s.effects, fn)
}

// release unlocks the session, then delivers queued updates and starts queued
// effects.
func (s *Session) release() {
	updates := s.pending
	effects := s.effects
	s.pending = nil
	s.effects = nil
	s.mu.Unlock()

	if s.cfg.OnUpdate != nil {
		for _, u := range updates {
			s.cfg.OnUpdate(u)
		}
	}
	for _, fn := range effects {
		s.spawn(fn)
	}
}

func (s *Session) serviceContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.ServiceTimeout)
}

// CallState returns the current call state.
func (s *Session) CallState() CallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InterviewID returns the bound interview identifier, or "" if none.
func (s *Session) InterviewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interviewID
}

// FeedbackID returns the feedback document identifier, if known.
func (s *Session) FeedbackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedbackID
}

// Questions returns the questions the call is primed with.
func (s *Session) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.questions...)
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []transcript.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Snapshot()
}

// Latest returns the most recent utterance.
func (s *Session) Latest() (transcript.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Latest()
}

// Profile returns the setup parameters gathered so far.
func (s *Session) Profile() setup.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}
