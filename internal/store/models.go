package store

import "time"

// Interview is a generated or resume-derived question set owned by one user.
type Interview struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Role               string    `json:"role"`
	Type               string    `json:"type"`
	Level              string    `json:"level"`
	TechStack          []string  `json:"techstack"`
	Questions          []string  `json:"questions"`
	ResumeImprovements []string  `json:"resumeImprovements,omitempty"`
	RawAIResponse      string    `json:"rawAiResponse,omitempty"`
	Finalized          bool      `json:"finalized"`
	CoverImage         string    `json:"coverImage"`
	CreatedAt          time.Time `json:"createdAt"`
}

// CategoryScore is one scored dimension of a feedback document.
type CategoryScore struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Feedback is the scored evaluation of one interview transcript.
type Feedback struct {
	ID                  string          `json:"id"`
	InterviewID         string          `json:"interviewId"`
	UserID              string          `json:"userId"`
	TotalScore          int             `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// Call is one voice session as recorded in the call journal.
type Call struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Mode        string     `json:"mode"`
	InterviewID string     `json:"interviewId,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	EventCount  int        `json:"eventCount,omitempty"`
}

// CallEvent is one client-visible update recorded against a call.
type CallEvent struct {
	ID         string    `json:"id"`
	CallID     string    `json:"callId"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
