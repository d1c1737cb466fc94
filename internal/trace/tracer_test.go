package trace

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
)

func TestTracerWritesJournal(t *testing.T) {
	journal := store.NewMemory()
	tr := NewTracer(journal, store.Call{ID: "call-1", UserID: "u1", Mode: "interview"})
	require.NotNil(t, tr)

	tr.Record("status", "ACTIVE")
	tr.Record("transcript", strings.Repeat("x", 2*maxDetailLen))
	tr.End("iv-1")
	tr.Close()
	tr.Record("late", "dropped")
	tr.Close()

	calls, total, err := journal.ListCalls(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "iv-1", calls[0].InterviewID)
	assert.NotNil(t, calls[0].EndedAt)

	events, err := journal.CallEvents(context.Background(), "call-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "status", events[0].Kind)
	assert.Len(t, events[1].Detail, maxDetailLen)
}

func TestNilTracerIsNoop(t *testing.T) {
	tr := NewTracer(nil, store.Call{})
	assert.Nil(t, tr)

	tr.Record("status", "ACTIVE")
	tr.End("")
	tr.Close()
	assert.Empty(t, tr.CallID())
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))

	// "é" is two bytes; a cut at byte 3 would split the second one.
	got := truncate("éé", 3)
	assert.Equal(t, "é", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("ü", maxDetailLen)
	got = truncate(long, maxDetailLen-1)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxDetailLen-1)
}
