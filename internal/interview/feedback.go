package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/llm"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/metrics"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/prompts"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/transcript"
)

// Utterance is one transcript line as posted by clients.
type Utterance struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	InterviewID string      `json:"interviewId"`
	UserID      string      `json:"userId"`
	Transcript  []Utterance `json:"transcript"`
	FeedbackID  string      `json:"feedbackId,omitempty"`
}

// FeedbackResult identifies the stored feedback document.
type FeedbackResult struct {
	FeedbackID string `json:"feedbackId"`
}

type feedbackOutput struct {
	TotalScore          float64         `json:"totalScore"`
	CategoryScores      json.RawMessage `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

// ScoreFeedback evaluates a transcript and writes the feedback document,
// overwriting req.FeedbackID when given.
func (s *Service) ScoreFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error) {
	if req.InterviewID == "" || req.UserID == "" {
		return nil, fmt.Errorf("%w: interviewId and userId", ErrMissingField)
	}

	entries := make([]transcript.Entry, 0, len(req.Transcript))
	for _, u := range req.Transcript {
		entries = append(entries, transcript.Entry{Speaker: transcript.SpeakerFromRole(u.Role), Text: u.Content})
	}

	start := time.Now()
	res, err := s.llm.Complete(ctx, prompts.FeedbackSystem, prompts.Feedback(transcript.Format(entries)))
	if err != nil {
		metrics.Errors.WithLabelValues("feedback", "llm").Inc()
		return nil, fmt.Errorf("score feedback: %w", err)
	}

	fb, err := parseFeedback(res.Text)
	if err != nil {
		metrics.Errors.WithLabelValues("feedback", "parse").Inc()
		s.log.Warn("unparseable feedback", "interview_id", req.InterviewID, "error", err)
		return nil, err
	}
	fb.ID = req.FeedbackID
	fb.InterviewID = req.InterviewID
	fb.UserID = req.UserID

	if err = s.repo.SaveFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}

	s.log.Info("feedback stored", "feedback_id", fb.ID, "interview_id", req.InterviewID,
		"total_score", fb.TotalScore, "duration_ms", time.Since(start).Milliseconds())
	return &FeedbackResult{FeedbackID: fb.ID}, nil
}

func parseFeedback(text string) (*store.Feedback, error) {
	var out feedbackOutput
	if err := llm.DecodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	scores, err := decodeCategoryScores(out.CategoryScores)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	total := clampScore(int(out.TotalScore + 0.5))
	if out.TotalScore == 0 && len(scores) > 0 {
		sum := 0
		for _, c := range scores {
			sum += c.Score
		}
		total = sum / len(scores)
	}

	return &store.Feedback{
		TotalScore:          total,
		CategoryScores:      scores,
		Strengths:           cleanQuestions(out.Strengths),
		AreasForImprovement: cleanQuestions(out.AreasForImprovement),
		FinalAssessment:     strings.TrimSpace(out.FinalAssessment),
	}, nil
}

// decodeCategoryScores accepts either a list of {name, score, comment} or an
// object mapping category name to score.
func decodeCategoryScores(raw json.RawMessage) ([]store.CategoryScore, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []store.CategoryScore{}, nil
	}

	var list []store.CategoryScore
	if err := json.Unmarshal(raw, &list); err == nil {
		for i := range list {
			list[i].Score = clampScore(list[i].Score)
		}
		return list, nil
	}

	var byName map[string]float64
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("category scores: %w", err)
	}
	list = make([]store.CategoryScore, 0, len(byName))
	for _, name := range prompts.FeedbackCategories {
		if v, ok := byName[name]; ok {
			list = append(list, store.CategoryScore{Name: name, Score: clampScore(int(v + 0.5))})
			delete(byName, name)
		}
	}
	rest := make([]string, 0, len(byName))
	for name := range byName {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		list = append(list, store.CategoryScore{Name: name, Score: clampScore(int(byName[name] + 0.5))})
	}
	return list, nil
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}
