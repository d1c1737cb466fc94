package session

import (
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/voice"
)

type bindSource string

const (
	fromGeneration bindSource = "generation"
	fromResume     bindSource = "resume"
)

// bind attaches an interview to the session and re-primes a live call with its
// questions. Generation binds only into an empty slot; a resume upload may
// replace an existing binding. Must be called with the mutex held.
func (s *Session) bind(source bindSource, interviewID string, questions, improvements []string) bool {
	if source == fromGeneration && s.interviewID != "" {
		metrics.Suppressed.WithLabelValues(string(source)).Inc()
		s.log.Debug("bind suppressed", "interview_id", interviewID, "bound", s.interviewID)
		return false
	}
	if len(questions) == 0 {
		questions = FallbackQuestions
		metrics.FallbackUsed.WithLabelValues(string(source)).Inc()
	}

	previous := s.interviewID
	s.interviewID = interviewID
	s.questions = append([]string(nil), questions...)
	s.phase = phaseInterview
	s.log.Info("interview bound", "source", string(source), "interview_id", interviewID,
		"replaced", previous, "questions", len(questions))

	s.emit(Update{
		Type:         UpdateInterview,
		InterviewID:  interviewID,
		Questions:    s.questions,
		Improvements: improvements,
	})

	if s.state == Connecting || s.state == Active {
		msg := voice.PrimeMessage(s.questions)
		s.after(func() { s.prime(msg) })
	}
	return true
}

// prime pushes the question set into the running call. Questions that do not
// reach the call are still used by the next Start.
func (s *Session) prime(msg voice.Message) {
	ctx, cancel := s.serviceContext()
	defer cancel()
	if err := s.cfg.Channel.Send(ctx, msg); err != nil {
		metrics.Errors.WithLabelValues("voice", "prime").Inc()
		s.log.Warn("re-prime failed", "error", err)
	}
}
