package session

import (
	"errors"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
)

// requestFeedback runs on the transition into Finished. Only a call that
// conducted an interview is scored; everything else goes home. Must be called
// with the mutex held.
func (s *Session) requestFeedback() {
	if s.phase != phaseInterview {
		s.log.Info("setup call ended", "profile_missing", s.profile.Missing())
		s.navigate(HomePath)
		return
	}
	if s.interviewID == "" {
		s.log.Warn("call ended without an interview")
		s.navigate(HomePath)
		return
	}
	if !s.feedback.try() {
		metrics.Suppressed.WithLabelValues("feedback").Inc()
		s.log.Debug("feedback suppressed", "guard", s.feedback.String())
		return
	}
	if s.cfg.Feedback == nil {
		s.feedback = fired
		s.log.Error("feedback requested without a scorer")
		s.navigate(HomePath)
		return
	}

	req := FeedbackRequest{
		InterviewID:   s.interviewID,
		ParticipantID: s.cfg.ParticipantID,
		Transcript:    s.transcript.Snapshot(),
		FeedbackID:    s.feedbackID,
	}
	s.log.Info("feedback requested", "interview_id", req.InterviewID, "entries", len(req.Transcript))
	s.after(func() { s.scoreFeedback(req) })
}

func (s *Session) scoreFeedback(req FeedbackRequest) {
	ctx, cancel := s.serviceContext()
	defer cancel()

	if s.cfg.Claimer != nil {
		ok, err := s.cfg.Claimer.Claim(ctx, "feedback:"+s.cfg.ID, s.cfg.ClaimTTL)
		switch {
		case err != nil:
			s.log.Warn("feedback claim unavailable, continuing", "error", err)
		case !ok:
			metrics.Suppressed.WithLabelValues("feedback").Inc()
			s.log.Info("feedback already claimed", "interview_id", req.InterviewID)
			s.onFeedbackScored(nil, errFeedbackClaimed)
			return
		}
	}

	start := time.Now()
	res, err := s.cfg.Feedback.ScoreFeedback(ctx, req)
	metrics.ServiceDuration.WithLabelValues("feedback").Observe(time.Since(start).Seconds())
	s.onFeedbackScored(res, err)
}

var errFeedbackClaimed = errors.New("feedback claimed by another session")

func (s *Session) onFeedbackScored(res *FeedbackResult, err error) {
	s.mu.Lock()
	defer s.release()

	s.feedback = fired
	if s.closed {
		s.log.Debug("feedback result after close ignored")
		return
	}
	if errors.Is(err, errFeedbackClaimed) {
		s.navigate(HomePath)
		return
	}
	if err == nil && (res == nil || res.FeedbackID == "") {
		err = errors.New("scoring returned no feedback")
	}
	if err != nil {
		metrics.OrchestratorCalls.WithLabelValues("feedback", "error").Inc()
		metrics.Errors.WithLabelValues("feedback", "service").Inc()
		s.log.Error("feedback failed", "interview_id", s.interviewID, "error", err)
		s.emit(Update{Type: UpdateError, Text: "Could not save your feedback."})
		s.navigate(HomePath)
		return
	}

	metrics.OrchestratorCalls.WithLabelValues("feedback", "ok").Inc()
	s.feedbackID = res.FeedbackID
	s.navigate(FeedbackPath(s.interviewID))
}

func (s *Session) navigate(path string) {
	s.emit(Update{Type: UpdateNavigate, Path: path})
}
