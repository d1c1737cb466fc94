package interview

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/llm"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/transcript"
)

type scriptedLLM struct {
	reply   string
	err     error
	systems []string
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, system, prompt string) (*llm.Result, error) {
	s.systems = append(s.systems, system)
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Result{Text: s.reply}, nil
}

func newTestService(reply string) (*Service, *store.Memory, *scriptedLLM) {
	repo := store.NewMemory()
	model := &scriptedLLM{reply: reply}
	svc := NewService(repo, model)
	svc.cover = func() string { return "/covers/test.png" }
	return svc, repo, model
}

func TestGenerateStoresInterview(t *testing.T) {
	svc, repo, model := newTestService(`["Q1", "Q2"]`)

	res, err := svc.Generate(context.Background(), GenerateRequest{
		Role:      "backend engineer",
		TechStack: "Go, Postgres,",
		Amount:    2,
		UserID:    "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, res.Questions)
	assert.Contains(t, model.prompts[0], "The job role is backend engineer.")
	assert.Contains(t, model.prompts[0], "experience level is junior.")
	assert.Contains(t, model.prompts[0], "lean towards: technical.")

	iv, err := repo.Interview(context.Background(), res.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, "u1", iv.UserID)
	assert.Equal(t, []string{"Go", "Postgres"}, iv.TechStack)
	assert.True(t, iv.Finalized)
	assert.Equal(t, "/covers/test.png", iv.CoverImage)
	assert.Equal(t, "junior", iv.Level)
}

func TestGenerateRequiresUser(t *testing.T) {
	svc, _, model := newTestService(`[]`)
	_, err := svc.Generate(context.Background(), GenerateRequest{Role: "developer"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Empty(t, model.prompts)
}

func TestGenerateLLMFailure(t *testing.T) {
	svc, repo, model := newTestService("")
	model.err = errors.New("quota exceeded")

	_, err := svc.Generate(context.Background(), GenerateRequest{UserID: "u1"})
	require.Error(t, err)
	ivs, _ := repo.InterviewsByUser(context.Background(), "u1")
	assert.Empty(t, ivs, "nothing stored on failure")
}

func TestGenerateRequestDecoding(t *testing.T) {
	var req GenerateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"7","userid":"u1"}`), &req))
	assert.Equal(t, Count(7), req.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":3}`), &req))
	assert.Equal(t, Count(3), req.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"many"}`), &req))

	d := GenerateRequest{Amount: 500}.withDefaults()
	assert.Equal(t, Count(maxAmount), d.Amount)
	assert.Equal(t, "developer", d.Role)
}

func TestParseQuestions(t *testing.T) {
	qs, fallback := ParseQuestions("```json\n[\"What is Go?\", \" \", \"Why channels?\"]\n```")
	assert.False(t, fallback)
	assert.Equal(t, []string{"What is Go?", "Why channels?"}, qs)

	qs, fallback = ParseQuestions("1. What is Go?\n2) Why channels?\n- How do you test?")
	assert.False(t, fallback)
	assert.Equal(t, []string{"What is Go?", "Why channels?", "How do you test?"}, qs)

	qs, fallback = ParseQuestions("   ")
	assert.True(t, fallback)
	assert.Equal(t, session.FallbackQuestions, qs)
}

func TestAnalyzeResume(t *testing.T) {
	reply := "```json\n{\"questions\":[\"Tell me about Project X\"],\"resume_improvements\":[\"Quantify impact\"]}\n```"
	svc, repo, model := newTestService(reply)

	res, err := svc.AnalyzeResume(context.Background(), ResumeRequest{
		Filename: "cv.pdf",
		Content:  []byte("ABC"),
		UserID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tell me about Project X"}, res.Questions)
	assert.Equal(t, []string{"Quantify impact"}, res.Improvements)
	assert.Contains(t, model.prompts[0], "QUJD", "document is base64 encoded")

	iv, err := repo.Interview(context.Background(), res.InterviewID)
	require.NoError(t, err)
	assert.Equal(t, ResumeType, iv.Type)
	assert.Equal(t, reply, iv.RawAIResponse)
	assert.False(t, iv.Finalized)
}

func TestAnalyzeResumeFallbacks(t *testing.T) {
	svc, _, _ := newTestService("I could not read that file.")

	res, err := svc.AnalyzeResume(context.Background(), ResumeRequest{Content: []byte("x"), UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, session.FallbackQuestions, res.Questions)
	assert.Equal(t, DefaultImprovements, res.Improvements)
	assert.NotEmpty(t, res.InterviewID)

	_, err = svc.AnalyzeResume(context.Background(), ResumeRequest{UserID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

const feedbackReply = `Here is the evaluation:
{
  "totalScore": 78,
  "categoryScores": [
    {"name": "Communication Skills", "score": 80, "comment": "Clear"},
    {"name": "Technical Knowledge", "score": 140, "comment": "Strong"}
  ],
  "strengths": ["Structured answers"],
  "areasForImprovement": ["More depth on testing"],
  "finalAssessment": "  Solid candidate. "
}`

func TestScoreFeedback(t *testing.T) {
	svc, repo, model := newTestService(feedbackReply)

	res, err := svc.ScoreFeedback(context.Background(), FeedbackRequest{
		InterviewID: "iv-1",
		UserID:      "u1",
		Transcript: []Utterance{
			{Role: "assistant", Content: "Tell me about yourself"},
			{Role: "user", Content: "I write Go"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.FeedbackID)
	assert.Contains(t, model.prompts[0], "- assistant: Tell me about yourself\n- user: I write Go\n")

	fb, err := repo.FeedbackByInterview(context.Background(), "iv-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 78, fb.TotalScore)
	assert.Equal(t, 100, fb.CategoryScores[1].Score, "scores are clamped")
	assert.Equal(t, "Solid candidate.", fb.FinalAssessment)

	again, err := svc.ScoreFeedback(context.Background(), FeedbackRequest{
		InterviewID: "iv-1",
		UserID:      "u1",
		FeedbackID:  res.FeedbackID,
	})
	require.NoError(t, err)
	assert.Equal(t, res.FeedbackID, again.FeedbackID, "existing document is overwritten")
}

func TestScoreFeedbackMalformed(t *testing.T) {
	svc, _, _ := newTestService("no idea")
	_, err := svc.ScoreFeedback(context.Background(), FeedbackRequest{InterviewID: "iv", UserID: "u"})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = svc.ScoreFeedback(context.Background(), FeedbackRequest{UserID: "u"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestCategoryScoresByName(t *testing.T) {
	fb, err := parseFeedback(`{"categoryScores":{"Zeal":50,"Problem-Solving":70,"Communication Skills":90}}`)
	require.NoError(t, err)
	require.Len(t, fb.CategoryScores, 3)
	assert.Equal(t, "Communication Skills", fb.CategoryScores[0].Name)
	assert.Equal(t, "Problem-Solving", fb.CategoryScores[1].Name)
	assert.Equal(t, "Zeal", fb.CategoryScores[2].Name)
	assert.Equal(t, 70, fb.TotalScore, "total derived from categories when absent")
}

func TestReadOperations(t *testing.T) {
	svc, repo, _ := newTestService("")
	ctx := context.Background()
	require.NoError(t, repo.CreateInterview(ctx, &store.Interview{ID: "a", UserID: "u1", Finalized: true}))
	require.NoError(t, repo.CreateInterview(ctx, &store.Interview{ID: "b", UserID: "u2", Finalized: true}))

	iv, err := svc.InterviewByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", iv.UserID)
	_, err = svc.InterviewByID(ctx, "zzz")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mine, err := svc.InterviewsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	_, err = svc.InterviewsByUser(ctx, "")
	assert.ErrorIs(t, err, ErrMissingField)

	latest, err := svc.LatestInterviews(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "b", latest[0].ID)

	_, err = svc.FeedbackByInterview(ctx, "a", "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionServicesAdapter(t *testing.T) {
	svc, repo, _ := newTestService(`["Q1"]`)
	a := NewSessionServices(svc)
	ctx := context.Background()

	gen, err := a.Generate(ctx, session.GenerationRequest{
		Role:            "I want a Developer role",
		InterviewKind:   "Technical interview please",
		ExperienceLevel: "Mid level",
		TechStack:       "React and Node",
		QuestionCount:   5,
		ParticipantID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1"}, gen.Questions)

	iv, _ := repo.Interview(ctx, gen.InterviewID)
	assert.Equal(t, "Mid level", iv.Level)

	svc.llm = &scriptedLLM{reply: feedbackReply}
	fb, err := a.ScoreFeedback(ctx, session.FeedbackRequest{
		InterviewID:   gen.InterviewID,
		ParticipantID: "u1",
		Transcript:    []transcript.Entry{{Speaker: transcript.Participant, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fb.FeedbackID)

	_, err = a.AnalyzeResume(ctx, session.ResumeRequest{ParticipantID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
