package session

import "github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/transcript"

// UpdateType classifies a client-facing update.
type UpdateType string

const (
	UpdateStatus      UpdateType = "status"
	UpdateTranscript  UpdateType = "transcript"
	UpdateSpeechStart UpdateType = "speech_start"
	UpdateSpeechEnd   UpdateType = "speech_end"
	UpdateInterview   UpdateType = "interview"
	UpdateError       UpdateType = "error"
	UpdateNavigate    UpdateType = "navigate"
)

// Update is what the client renders: status, the latest line, speaking
// indicator, the bound interview, errors and navigation.
type Update struct {
	Type         UpdateType         `json:"type"`
	Status       CallState          `json:"status,omitempty"`
	Speaker      transcript.Speaker `json:"speaker,omitempty"`
	Text         string             `json:"text,omitempty"`
	InterviewID  string             `json:"interviewId,omitempty"`
	Questions    []string           `json:"questions,omitempty"`
	Improvements []string           `json:"resumeImprovements,omitempty"`
	Path         string             `json:"path,omitempty"`
}

// UpdateCallback receives updates in the order the session produced them.
// It is called without the session lock held.
type UpdateCallback func(Update)

// HomePath is where the client goes when there is nothing to review.
const HomePath = "/"

// FeedbackPath is the review page for a scored interview.
func FeedbackPath(interviewID string) string {
	return "/interview/" + interviewID + "/feedback"
}
