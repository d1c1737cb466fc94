package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSingleCues(t *testing.T) {
	cases := []struct {
		text string
		want Updates
	}{
		{"I want a Developer role", Updates{Role: "I want a Developer role"}},
		{"Technical interview please", Updates{InterviewKind: "Technical interview please"}},
		{"Mid level", Updates{ExperienceLevel: "Mid level"}},
		{"React and Node", Updates{TechStack: "React and Node"}},
		{"5 questions", Updates{QuestionCount: 5}},
		{"an HR round", Updates{InterviewKind: "an HR round"}},
		{"hello there", Updates{}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Extract(tc.text, Profile{}))
		})
	}
}

func TestExtractMultipleFieldsFromOneUtterance(t *testing.T) {
	u := Extract("I'm a senior Python engineer, give me 10 technical questions", Profile{})

	assert.ElementsMatch(t, []Field{
		FieldRole, FieldInterviewKind, FieldExperienceLevel, FieldTechStack, FieldQuestionCount,
	}, u.Fields())
	assert.Equal(t, 10, u.QuestionCount)
}

func TestExtractMatchesWholeTokensOnly(t *testing.T) {
	// "three" contains "hr" and "midnight" contains "mid"; neither is a cue.
	u := Extract("three things at midnight", Profile{})
	assert.True(t, u.Empty())
}

func TestExtractTakesFirstInteger(t *testing.T) {
	u := Extract("maybe 7 or 8 questions", Profile{})
	assert.Equal(t, 7, u.QuestionCount)

	assert.Zero(t, Extract("0 questions", Profile{}).QuestionCount)
}

func TestApplyNeverClears(t *testing.T) {
	p := Profile{Role: "backend developer", QuestionCount: 4}
	p = p.Apply(Updates{TechStack: "Go and Postgres"})

	assert.Equal(t, "backend developer", p.Role)
	assert.Equal(t, 4, p.QuestionCount)
	assert.Equal(t, "Go and Postgres", p.TechStack)

	p = p.Apply(Updates{Role: "staff engineer"})
	assert.Equal(t, "staff engineer", p.Role)
}

func TestProfileCompleteness(t *testing.T) {
	var p Profile
	utterances := []string{
		"I want a Developer role",
		"Technical interview please",
		"Mid level",
		"React and Node",
		"5 questions",
	}
	for i, text := range utterances {
		p = p.Apply(Extract(text, p))
		if i < len(utterances)-1 {
			assert.False(t, p.Complete(), "complete after utterance %d", i+1)
		}
	}
	assert.True(t, p.Complete())
	assert.Empty(t, p.Missing())
}

func TestMissingOrder(t *testing.T) {
	p := Profile{InterviewKind: "hr"}
	assert.Equal(t, []Field{FieldRole, FieldExperienceLevel, FieldTechStack, FieldQuestionCount}, p.Missing())
}
