package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clocked(start time.Time) (*Memory, func(time.Duration)) {
	m := NewMemory()
	now := start
	m.now = func() time.Time { return now }
	return m, func(d time.Duration) { now = now.Add(d) }
}

func TestMemoryInterviews(t *testing.T) {
	ctx := context.Background()
	m, tick := clocked(time.Unix(1_700_000_000, 0))

	first := &Interview{UserID: "u1", Role: "developer", Questions: []string{"Q1"}, Finalized: true}
	require.NoError(t, m.CreateInterview(ctx, first))
	assert.NotEmpty(t, first.ID)
	tick(time.Minute)

	second := &Interview{UserID: "u1", Role: "analyst", Finalized: true}
	require.NoError(t, m.CreateInterview(ctx, second))
	tick(time.Minute)

	other := &Interview{UserID: "u2", Role: "designer", Finalized: true}
	require.NoError(t, m.CreateInterview(ctx, other))
	tick(time.Minute)
	require.NoError(t, m.CreateInterview(ctx, &Interview{UserID: "u3", Finalized: false}))

	got, err := m.Interview(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "developer", got.Role)
	got.Questions[0] = "mutated"
	again, _ := m.Interview(ctx, first.ID)
	assert.Equal(t, "Q1", again.Questions[0], "returned documents are copies")

	_, err = m.Interview(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := m.InterviewsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	latest, err := m.LatestInterviews(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, latest, 1, "own and unfinalized interviews are excluded")
	assert.Equal(t, other.ID, latest[0].ID)

	none, err := m.InterviewsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryLatestLimit(t *testing.T) {
	ctx := context.Background()
	m, tick := clocked(time.Unix(0, 0))
	for i := 0; i < DefaultLatestLimit+5; i++ {
		require.NoError(t, m.CreateInterview(ctx, &Interview{UserID: "other", Finalized: true}))
		tick(time.Second)
	}
	all, _ := m.LatestInterviews(ctx, "me", 0)
	assert.Len(t, all, DefaultLatestLimit)
	few, _ := m.LatestInterviews(ctx, "me", 3)
	assert.Len(t, few, 3)
}

func TestMemoryFeedbackOverwrite(t *testing.T) {
	ctx := context.Background()
	m, tick := clocked(time.Unix(1_700_000_000, 0))

	fb := &Feedback{InterviewID: "iv", UserID: "u1", TotalScore: 40}
	require.NoError(t, m.SaveFeedback(ctx, fb))
	id := fb.ID
	require.NotEmpty(t, id)
	tick(time.Minute)

	require.NoError(t, m.SaveFeedback(ctx, &Feedback{ID: id, InterviewID: "iv", UserID: "u1", TotalScore: 75}))

	got, err := m.FeedbackByInterview(ctx, "iv", "u1")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 75, got.TotalScore)

	_, err = m.FeedbackByInterview(ctx, "iv", "u2")
	assert.ErrorIs(t, err, ErrNotFound, "feedback is scoped to its user")
}

func TestMemoryCallJournal(t *testing.T) {
	ctx := context.Background()
	m, tick := clocked(time.Unix(1_700_000_000, 0))

	require.NoError(t, m.CreateCall(ctx, Call{ID: "c1", UserID: "u1", Mode: "generate"}))
	tick(time.Second)
	require.NoError(t, m.CreateCall(ctx, Call{ID: "c2", UserID: "u1", Mode: "interview"}))
	require.NoError(t, m.RecordEvent(ctx, CallEvent{ID: "e1", CallID: "c1", Kind: "status", Detail: "ACTIVE"}))
	require.NoError(t, m.EndCall(ctx, "c1", "iv-1"))
	assert.ErrorIs(t, m.EndCall(ctx, "missing", ""), ErrNotFound)

	calls, total, err := m.ListCalls(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "c2", calls[0].ID)
	assert.Equal(t, "iv-1", calls[1].InterviewID)
	assert.NotNil(t, calls[1].EndedAt)
	assert.Equal(t, 1, calls[1].EventCount)

	page, _, _ := m.ListCalls(ctx, 10, 5)
	assert.Empty(t, page)

	events, err := m.CallEvents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ACTIVE", events[0].Detail)
}

func TestJSONLists(t *testing.T) {
	assert.Equal(t, "[]", jsonList(nil))
	assert.Equal(t, `["a","b"]`, jsonList([]string{"a", "b"}))

	var out []string
	require.NoError(t, decodeLists(listField{[]byte(`["x"]`), &out}))
	assert.Equal(t, []string{"x"}, out)
	assert.Error(t, decodeLists(listField{[]byte(`{`), &out}))
}
