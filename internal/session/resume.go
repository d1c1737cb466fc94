package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
)

// ErrUploadInProgress is returned while a previous resume is still being analyzed.
var ErrUploadInProgress = errors.New("resume analysis already in progress")

// UploadResume sends a resume to the analysis service. A successful analysis
// binds its interview, replacing any interview bound by voice setup. Failures
// are reported to the client and leave the call state untouched.
func (s *Session) UploadResume(doc ResumeDocument) error {
	s.mu.Lock()
	defer s.release()

	switch {
	case s.closed:
		return ErrClosed
	case s.state == Finished:
		return ErrSessionFinished
	case s.cfg.Mode == ModeQuestions:
		return fmt.Errorf("%w: resume upload in %s mode", ErrInvalidTransition, s.cfg.Mode)
	case s.resuming:
		metrics.Suppressed.WithLabelValues("resume").Inc()
		return ErrUploadInProgress
	case len(doc.Content) == 0:
		metrics.Errors.WithLabelValues("resume", "missing_document").Inc()
		s.emit(Update{Type: UpdateError, Text: "Please select a resume file to upload."})
		return ErrMissingDocument
	case s.cfg.Resume == nil:
		s.emit(Update{Type: UpdateError, Text: "Resume analysis is unavailable."})
		return errors.New("session: no resume analyzer configured")
	}

	s.resuming = true
	req := ResumeRequest{
		Document: ResumeDocument{
			Filename: doc.Filename,
			Content:  append([]byte(nil), doc.Content...),
		},
		ParticipantID: s.cfg.ParticipantID,
	}
	s.log.Info("resume analysis requested", "filename", doc.Filename, "bytes", len(doc.Content))

	s.after(func() {
		ctx, cancel := s.serviceContext()
		defer cancel()
		start := time.Now()
		res, err := s.cfg.Resume.AnalyzeResume(ctx, req)
		metrics.ServiceDuration.WithLabelValues("resume").Observe(time.Since(start).Seconds())
		s.onResumeAnalyzed(res, err)
	})
	return nil
}

func (s *Session) onResumeAnalyzed(res *ResumeAnalysis, err error) {
	s.mu.Lock()
	defer s.release()

	s.resuming = false
	if s.closed {
		s.log.Debug("resume result after close ignored")
		return
	}
	if err == nil && (res == nil || res.InterviewID == "") {
		err = errors.New("resume analysis returned no interview")
	}
	if err != nil {
		metrics.OrchestratorCalls.WithLabelValues("resume", "error").Inc()
		metrics.Errors.WithLabelValues("resume", "service").Inc()
		s.log.Error("resume analysis failed", "error", err)
		s.emit(Update{Type: UpdateError, Text: "Could not analyze the resume."})
		return
	}

	metrics.OrchestratorCalls.WithLabelValues("resume", "ok").Inc()
	// The resume track wins over voice setup from here on.
	if s.generation != inFlight {
		s.generation = fired
	}
	s.bind(fromResume, res.InterviewID, res.Questions, res.Improvements)
}
