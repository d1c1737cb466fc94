package interview

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/llm"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/prompts"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
)

// ResumeType is the interview type stored for resume-derived interviews.
const ResumeType = "resume-based"

// DefaultImprovements is used when the model returns no usable suggestions.
var DefaultImprovements = []string{
	"Add more measurable results to your work experience.",
	"Include certifications or relevant links.",
}

// ResumeRequest is an uploaded resume and its owner.
type ResumeRequest struct {
	Filename string
	Content  []byte
	UserID   string
}

// ResumeAnalysis is the result of a resume analysis.
type ResumeAnalysis struct {
	InterviewID  string   `json:"interviewId"`
	Questions    []string `json:"questions"`
	Improvements []string `json:"resumeImprovements"`
}

type resumeOutput struct {
	Questions          []string `json:"questions"`
	ResumeImprovements []string `json:"resume_improvements"`
	Improvements       []string `json:"resumeImprovements"`
}

// AnalyzeResume derives questions and suggestions from a resume and stores a
// resume-based interview, keeping the raw model output for inspection.
func (s *Service) AnalyzeResume(ctx context.Context, req ResumeRequest) (*ResumeAnalysis, error) {
	if len(req.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	start := time.Now()
	encoded := base64.StdEncoding.EncodeToString(req.Content)
	res, err := s.llm.Complete(ctx, prompts.ResumeSystem, prompts.Resume(req.Filename, encoded))
	if err != nil {
		metrics.Errors.WithLabelValues("resume", "llm").Inc()
		return nil, fmt.Errorf("analyze resume: %w", err)
	}

	questions, improvements := parseResume(res.Text)
	if questions == nil {
		metrics.FallbackUsed.WithLabelValues("resume").Inc()
		questions = append([]string(nil), session.FallbackQuestions...)
	}
	if improvements == nil {
		improvements = append([]string(nil), DefaultImprovements...)
	}

	iv := &store.Interview{
		UserID:             req.UserID,
		Type:               ResumeType,
		Questions:          questions,
		ResumeImprovements: improvements,
		RawAIResponse:      res.Text,
		CoverImage:         s.cover(),
	}
	if err = s.repo.CreateInterview(ctx, iv); err != nil {
		return nil, fmt.Errorf("store interview: %w", err)
	}

	s.log.Info("resume analyzed", "interview_id", iv.ID, "user_id", req.UserID,
		"bytes", len(req.Content), "questions", len(questions),
		"duration_ms", time.Since(start).Milliseconds())
	return &ResumeAnalysis{InterviewID: iv.ID, Questions: questions, Improvements: improvements}, nil
}

// parseResume returns nil for any list the output does not provide.
func parseResume(text string) (questions, improvements []string) {
	var out resumeOutput
	if err := llm.DecodeJSON(text, &out); err != nil {
		return nil, nil
	}
	questions = cleanQuestions(out.Questions)
	improvements = cleanQuestions(out.ResumeImprovements)
	if len(improvements) == 0 {
		improvements = cleanQuestions(out.Improvements)
	}
	if len(questions) == 0 {
		questions = nil
	}
	if len(improvements) == 0 {
		improvements = nil
	}
	return questions, improvements
}
