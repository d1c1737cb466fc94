package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Repository and Journal used when no database is
// configured and in tests.
type Memory struct {
	mu         sync.Mutex
	interviews map[string]Interview
	feedback   map[string]Feedback
	calls      map[string]Call
	events     map[string][]CallEvent
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		interviews: make(map[string]Interview),
		feedback:   make(map[string]Feedback),
		calls:      make(map[string]Call),
		events:     make(map[string][]CallEvent),
		now:        time.Now,
	}
}

func (m *Memory) CreateInterview(_ context.Context, iv *Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = m.now().UTC()
	}
	m.interviews[iv.ID] = cloneInterview(*iv)
	return nil
}

func (m *Memory) Interview(_ context.Context, id string) (*Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	iv, ok := m.interviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneInterview(iv)
	return &out, nil
}

func (m *Memory) InterviewsByUser(_ context.Context, userID string) ([]Interview, error) {
	return m.filter(func(iv Interview) bool { return iv.UserID == userID }, 0), nil
}

func (m *Memory) LatestInterviews(_ context.Context, excludeUserID string, limit int) ([]Interview, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	return m.filter(func(iv Interview) bool {
		return iv.Finalized && iv.UserID != excludeUserID
	}, limit), nil
}

func (m *Memory) filter(keep func(Interview) bool, limit int) []Interview {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Interview{}
	for _, iv := range m.interviews {
		if keep(iv) {
			out = append(out, cloneInterview(iv))
		}
	}
	newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) SaveFeedback(_ context.Context, fb *Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = m.now().UTC()
	}
	m.feedback[fb.ID] = *fb
	return nil
}

func (m *Memory) FeedbackByInterview(_ context.Context, interviewID, userID string) (*Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *Feedback
	for _, fb := range m.feedback {
		if fb.InterviewID != interviewID || fb.UserID != userID {
			continue
		}
		if found == nil || fb.CreatedAt.After(found.CreatedAt) {
			f := fb
			found = &f
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *Memory) CreateCall(_ context.Context, c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.StartedAt.IsZero() {
		c.StartedAt = m.now().UTC()
	}
	m.calls[c.ID] = c
	return nil
}

func (m *Memory) EndCall(_ context.Context, id, interviewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[id]
	if !ok {
		return ErrNotFound
	}
	ended := m.now().UTC()
	c.EndedAt = &ended
	if interviewID != "" {
		c.InterviewID = interviewID
	}
	m.calls[id] = c
	return nil
}

func (m *Memory) RecordEvent(_ context.Context, ev CallEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = m.now().UTC()
	}
	m.events[ev.CallID] = append(m.events[ev.CallID], ev)
	return nil
}

func (m *Memory) ListCalls(_ context.Context, limit, offset int) ([]Call, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]Call, 0, len(m.calls))
	for _, c := range m.calls {
		c.EventCount = len(m.events[c.ID])
		calls = append(calls, c)
	}
	sortCalls(calls)

	total := len(calls)
	if offset >= total {
		return []Call{}, total, nil
	}
	calls = calls[offset:]
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	return calls, total, nil
}

func (m *Memory) CallEvents(_ context.Context, callID string) ([]CallEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]CallEvent(nil), m.events[callID]...), nil
}

func (m *Memory) Close() error { return nil }

func cloneInterview(iv Interview) Interview {
	iv.TechStack = append([]string(nil), iv.TechStack...)
	iv.Questions = append([]string(nil), iv.Questions...)
	iv.ResumeImprovements = append([]string(nil), iv.ResumeImprovements...)
	return iv
}
