package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/setup"
)

// detectSetup feeds a participant utterance to the extractor while the session
// is still gathering setup parameters. Must be called with the mutex held.
func (s *Session) detectSetup(text string) {
	if s.cfg.Mode != ModeVoiceSetup || s.phase != phaseSetup || s.generation != notFired {
		return
	}

	updates := setup.Extract(text, s.profile)
	if updates.Empty() {
		return
	}
	for _, f := range updates.Fields() {
		metrics.SetupFieldUpdates.WithLabelValues(string(f)).Inc()
	}
	s.profile = s.profile.Apply(updates)
	s.log.Debug("setup fields", "detected", updates.Fields(), "missing", s.profile.Missing())

	if s.profile.Complete() {
		s.fireGeneration()
	}
}

// RetryGeneration requests question generation again after a failed attempt.
// Failed attempts are never retried automatically: the profile stays frozen
// until this is called.
func (s *Session) RetryGeneration() error {
	s.mu.Lock()
	defer s.release()

	switch {
	case s.closed:
		return ErrClosed
	case s.cfg.Mode != ModeVoiceSetup:
		return ErrNotSetupMode
	case !s.profile.Complete():
		return fmt.Errorf("%w: missing %v", ErrSetupIncomplete, s.profile.Missing())
	}
	if s.generation == failed {
		s.generation = notFired
	}
	s.fireGeneration()
	return nil
}

// fireGeneration starts the generation call unless one is in flight or has
// already succeeded. Must be called with the mutex held.
func (s *Session) fireGeneration() {
	if s.interviewID != "" || !s.generation.try() {
		metrics.Suppressed.WithLabelValues("generation").Inc()
		s.log.Debug("generation suppressed", "guard", s.generation.String())
		return
	}
	if s.cfg.Generator == nil {
		s.generation = failed
		s.log.Error("generation requested without a generator")
		s.emit(Update{Type: UpdateError, Text: "Interview generation is unavailable."})
		return
	}

	p := s.profile
	req := GenerationRequest{
		Role:            p.Role,
		InterviewKind:   p.InterviewKind,
		ExperienceLevel: p.ExperienceLevel,
		TechStack:       p.TechStack,
		QuestionCount:   p.QuestionCount,
		ParticipantID:   s.cfg.ParticipantID,
	}
	s.log.Info("generation requested", "role", req.Role, "type", req.InterviewKind,
		"level", req.ExperienceLevel, "amount", req.QuestionCount)

	s.after(func() {
		ctx, cancel := s.serviceContext()
		defer cancel()
		start := time.Now()
		res, err := s.cfg.Generator.Generate(ctx, req)
		metrics.ServiceDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
		s.onGenerated(res, err)
	})
}

func (s *Session) onGenerated(res *Generated, err error) {
	s.mu.Lock()
	defer s.release()

	if s.closed {
		s.log.Debug("generation result after close ignored")
		return
	}
	if err == nil && (res == nil || res.InterviewID == "") {
		err = errors.New("generation returned no interview")
	}
	if err != nil {
		s.generation = failed
		metrics.OrchestratorCalls.WithLabelValues("generation", "error").Inc()
		metrics.Errors.WithLabelValues("generation", "service").Inc()
		s.log.Error("generation failed", "error", err)
		s.emit(Update{Type: UpdateError, Text: "Could not generate interview questions."})
		return
	}

	s.generation = fired
	metrics.OrchestratorCalls.WithLabelValues("generation", "ok").Inc()
	s.bind(fromGeneration, res.InterviewID, res.Questions, nil)
}
