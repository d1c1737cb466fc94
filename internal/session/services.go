package session

import (
	"context"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/transcript"
)

// GenerationRequest asks the generation service for a question set.
type GenerationRequest struct {
	Role            string `json:"role"`
	InterviewKind   string `json:"type"`
	ExperienceLevel string `json:"level"`
	TechStack       string `json:"techstack"`
	QuestionCount   int    `json:"amount"`
	ParticipantID   string `json:"userid"`
}

// Generated is a successful generation result.
type Generated struct {
	InterviewID string   `json:"interviewId"`
	Questions   []string `json:"questions"`
}

// ResumeDocument is an uploaded resume, copied into the session by value.
type ResumeDocument struct {
	Filename string
	Content  []byte
}

// ResumeRequest asks the resume-analysis service for a question set.
type ResumeRequest struct {
	Document      ResumeDocument
	ParticipantID string
}

// ResumeAnalysis is a successful resume-analysis result.
type ResumeAnalysis struct {
	InterviewID  string   `json:"interviewId"`
	Questions    []string `json:"questions"`
	Improvements []string `json:"resumeImprovements"`
}

// FeedbackRequest asks the scoring service to evaluate a finished interview.
type FeedbackRequest struct {
	InterviewID   string             `json:"interviewId"`
	ParticipantID string             `json:"userId"`
	Transcript    []transcript.Entry `json:"transcript"`
	FeedbackID    string             `json:"feedbackId,omitempty"`
}

// FeedbackResult is a successful scoring result.
type FeedbackResult struct {
	FeedbackID string `json:"feedbackId"`
}

// Generator creates an interview document and its questions from a setup profile.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*Generated, error)
}

// ResumeAnalyzer creates an interview document and its questions from a resume.
type ResumeAnalyzer interface {
	AnalyzeResume(ctx context.Context, req ResumeRequest) (*ResumeAnalysis, error)
}

// FeedbackScorer scores a transcript and stores the feedback document.
type FeedbackScorer interface {
	ScoreFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error)
}

// Claimer records one-time claims that outlive a single process.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// FallbackQuestions is used when a service returns no usable questions.
var FallbackQuestions = []string{
	"Tell me about your recent project.",
	"What are your primary technical skills?",
	"What is your proudest achievement?",
}
