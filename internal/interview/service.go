// Package interview implements the generation, resume-analysis and
// feedback-scoring services on top of an LLM and the document store.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/llm"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrEmptyDocument = errors.New("no file uploaded")
	ErrMalformed     = errors.New("malformed model output")
)

// Covers are the interview card images, picked at random per interview.
var Covers = []string{
	"/adobe.png", "/amazon.png", "/facebook.png", "/hostinger.png",
	"/pinterest.png", "/quora.png", "/reddit.png", "/skype.png",
	"/spotify.png", "/telegram.png", "/tiktok.png", "/yahoo.png",
}

// Service owns every document write; sessions reach it only through the
// request/response contracts.
type Service struct {
	repo  store.Repository
	llm   llm.Completer
	cover func() string
	log   *slog.Logger
}

func NewService(repo store.Repository, completer llm.Completer) *Service {
	return &Service{
		repo:  repo,
		llm:   completer,
		cover: randomCover,
		log:   slog.Default().With("component", "interview"),
	}
}

func randomCover() string {
	return "/covers" + Covers[rand.IntN(len(Covers))]
}

// InterviewByID returns one interview.
func (s *Service) InterviewByID(ctx context.Context, id string) (*store.Interview, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	return s.repo.Interview(ctx, id)
}

// InterviewsByUser returns the user's interviews, newest first.
func (s *Service) InterviewsByUser(ctx context.Context, userID string) ([]store.Interview, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	return s.repo.InterviewsByUser(ctx, userID)
}

// LatestInterviews returns finalized interviews of other users, newest first.
func (s *Service) LatestInterviews(ctx context.Context, userID string, limit int) ([]store.Interview, error) {
	if limit <= 0 {
		limit = store.DefaultLatestLimit
	}
	return s.repo.LatestInterviews(ctx, userID, limit)
}

// FeedbackByInterview returns the user's feedback for an interview.
func (s *Service) FeedbackByInterview(ctx context.Context, interviewID, userID string) (*store.Feedback, error) {
	if interviewID == "" || userID == "" {
		return nil, fmt.Errorf("%w: interviewId and userId", ErrMissingField)
	}
	return s.repo.FeedbackByInterview(ctx, interviewID, userID)
}
