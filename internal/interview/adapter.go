package interview

import (
	"context"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
)

// SessionServices exposes a Service through the contracts a session uses.
type SessionServices struct {
	svc *Service
}

func NewSessionServices(svc *Service) SessionServices {
	return SessionServices{svc: svc}
}

var (
	_ session.Generator      = SessionServices{}
	_ session.ResumeAnalyzer = SessionServices{}
	_ session.FeedbackScorer = SessionServices{}
)

func (a SessionServices) Generate(ctx context.Context, req session.GenerationRequest) (*session.Generated, error) {
	res, err := a.svc.Generate(ctx, GenerateRequest{
		Type:      req.InterviewKind,
		Role:      req.Role,
		Level:     req.ExperienceLevel,
		TechStack: req.TechStack,
		Amount:    Count(req.QuestionCount),
		UserID:    req.ParticipantID,
	})
	if err != nil {
		return nil, err
	}
	return &session.Generated{InterviewID: res.InterviewID, Questions: res.Questions}, nil
}

func (a SessionServices) AnalyzeResume(ctx context.Context, req session.ResumeRequest) (*session.ResumeAnalysis, error) {
	res, err := a.svc.AnalyzeResume(ctx, ResumeRequest{
		Filename: req.Document.Filename,
		Content:  req.Document.Content,
		UserID:   req.ParticipantID,
	})
	if err != nil {
		return nil, err
	}
	return &session.ResumeAnalysis{
		InterviewID:  res.InterviewID,
		Questions:    res.Questions,
		Improvements: res.Improvements,
	}, nil
}

func (a SessionServices) ScoreFeedback(ctx context.Context, req session.FeedbackRequest) (*session.FeedbackResult, error) {
	lines := make([]Utterance, 0, len(req.Transcript))
	for _, e := range req.Transcript {
		lines = append(lines, Utterance{Role: e.Speaker.Role(), Content: e.Text})
	}
	res, err := a.svc.ScoreFeedback(ctx, FeedbackRequest{
		InterviewID: req.InterviewID,
		UserID:      req.ParticipantID,
		Transcript:  lines,
		FeedbackID:  req.FeedbackID,
	})
	if err != nil {
		return nil, err
	}
	return &session.FeedbackResult{FeedbackID: res.FeedbackID}, nil
}
