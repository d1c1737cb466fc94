// Package setup detects interview setup parameters in free-form speech.
//
// Detection is deliberately loose keyword matching: an utterance that contains
// a cue token for a field becomes that field's value, verbatim. A single
// utterance may fill several fields at once.
package setup

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Field names a setup parameter.
type Field string

const (
	FieldRole            Field = "role"
	FieldInterviewKind   Field = "interview_kind"
	FieldExperienceLevel Field = "experience_level"
	FieldTechStack       Field = "tech_stack"
	FieldQuestionCount   Field = "question_count"
)

// Profile accumulates the setup parameters gathered during the setup call.
type Profile struct {
	Role            string `json:"role"`
	InterviewKind   string `json:"type"`
	ExperienceLevel string `json:"level"`
	TechStack       string `json:"techstack"`
	QuestionCount   int    `json:"amount"`
}

// Complete reports whether all five fields are set.
func (p Profile) Complete() bool {
	return p.Role != "" && p.InterviewKind != "" && p.ExperienceLevel != "" &&
		p.TechStack != "" && p.QuestionCount > 0
}

// Missing lists the fields that are still empty, in prompt order.
func (p Profile) Missing() []Field {
	var out []Field
	if p.Role == "" {
		out = append(out, FieldRole)
	}
	if p.InterviewKind == "" {
		out = append(out, FieldInterviewKind)
	}
	if p.ExperienceLevel == "" {
		out = append(out, FieldExperienceLevel)
	}
	if p.TechStack == "" {
		out = append(out, FieldTechStack)
	}
	if p.QuestionCount <= 0 {
		out = append(out, FieldQuestionCount)
	}
	return out
}

// Updates is the set of fields detected in one utterance. Zero values mean
// "not detected".
type Updates struct {
	Role            string
	InterviewKind   string
	ExperienceLevel string
	TechStack       string
	QuestionCount   int
}

// Fields lists the fields this update sets.
func (u Updates) Fields() []Field {
	var out []Field
	if u.Role != "" {
		out = append(out, FieldRole)
	}
	if u.InterviewKind != "" {
		out = append(out, FieldInterviewKind)
	}
	if u.ExperienceLevel != "" {
		out = append(out, FieldExperienceLevel)
	}
	if u.TechStack != "" {
		out = append(out, FieldTechStack)
	}
	if u.QuestionCount > 0 {
		out = append(out, FieldQuestionCount)
	}
	return out
}

// Empty reports whether nothing was detected.
func (u Updates) Empty() bool {
	return len(u.Fields()) == 0
}

// Apply merges u into p. Detected fields overwrite earlier values; fields not
// detected keep their current value, so nothing is ever cleared.
func (p Profile) Apply(u Updates) Profile {
	if u.Role != "" {
		p.Role = u.Role
	}
	if u.InterviewKind != "" {
		p.InterviewKind = u.InterviewKind
	}
	if u.ExperienceLevel != "" {
		p.ExperienceLevel = u.ExperienceLevel
	}
	if u.TechStack != "" {
		p.TechStack = u.TechStack
	}
	if u.QuestionCount > 0 {
		p.QuestionCount = u.QuestionCount
	}
	return p
}

var roleCues = map[string]bool{
	"developer": true, "engineer": true, "programmer": true, "architect": true,
	"analyst": true, "designer": true, "scientist": true, "manager": true,
}

var kindCues = map[string]bool{
	"technical": true, "hr": true, "behavioral": true, "behavioural": true,
}

var levelCues = map[string]bool{
	"junior": true, "mid": true, "senior": true,
}

var techCues = map[string]bool{
	"react": true, "node": true, "nodejs": true, "python": true, "java": true,
	"javascript": true, "typescript": true, "golang": true, "rust": true,
	"kotlin": true, "angular": true, "vue": true, "django": true, "flask": true,
	"sql": true, "postgres": true, "mongodb": true, "aws": true, "docker": true,
	"kubernetes": true, "ruby": true, "rails": true, "php": true, "dotnet": true,
	"csharp": true, "nextjs": true, "graphql": true, "redis": true,
}

var integerLiteral = regexp.MustCompile(`\b\d+\b`)

// Extract returns the fields detected in text. It is pure: the current
// profile is accepted so callers can evolve rules that depend on it, but it is
// never modified.
func Extract(text string, _ Profile) Updates {
	text = strings.TrimSpace(text)
	if text == "" {
		return Updates{}
	}

	tokens := tokenize(text)
	var u Updates
	if containsAny(tokens, roleCues) {
		u.Role = text
	}
	if containsAny(tokens, kindCues) {
		u.InterviewKind = text
	}
	if containsAny(tokens, levelCues) {
		u.ExperienceLevel = text
	}
	if containsAny(tokens, techCues) {
		u.TechStack = text
	}
	if m := integerLiteral.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			u.QuestionCount = n
		}
	}
	return u
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(tokens []string, cues map[string]bool) bool {
	for _, tok := range tokens {
		if cues[tok] {
			return true
		}
	}
	return false
}
