// Package store persists interviews, feedback and the call journal.
package store

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned when a document does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("not found")

// DefaultLatestLimit caps the community interview listing.
const DefaultLatestLimit = 20

// maxCalls bounds the call journal; older calls are pruned on insert.
const maxCalls = 1000

// Repository is the document store behind the interview services.
type Repository interface {
	CreateInterview(ctx context.Context, iv *Interview) error
	Interview(ctx context.Context, id string) (*Interview, error)
	InterviewsByUser(ctx context.Context, userID string) ([]Interview, error)
	// LatestInterviews lists finalized interviews of users other than
	// excludeUserID, newest first.
	LatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]Interview, error)

	// SaveFeedback overwrites fb.ID when set and creates a new document otherwise.
	SaveFeedback(ctx context.Context, fb *Feedback) error
	FeedbackByInterview(ctx context.Context, interviewID, userID string) (*Feedback, error)

	Close() error
}

// Journal records voice calls and their updates.
type Journal interface {
	CreateCall(ctx context.Context, c Call) error
	EndCall(ctx context.Context, id, interviewID string) error
	RecordEvent(ctx context.Context, ev CallEvent) error
	ListCalls(ctx context.Context, limit, offset int) ([]Call, int, error)
	CallEvents(ctx context.Context, callID string) ([]CallEvent, error)
}

func newestFirst(ivs []Interview) {
	sort.SliceStable(ivs, func(i, j int) bool {
		return ivs[i].CreatedAt.After(ivs[j].CreatedAt)
	})
}

func sortCalls(calls []Call) {
	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].StartedAt.After(calls[j].StartedAt)
	})
}
