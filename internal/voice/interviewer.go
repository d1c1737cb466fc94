package voice

import (
	"fmt"
	"strings"
)

// Interviewer is the assistant used for both the setup conversation and the
// interview itself.
var Interviewer = AgentConfig{
	Name: "AI Interview Agent",
	Instructions: `You are an AI interviewer.

First gather details conversationally before starting the mock interview:
- What role are you interviewing for?
- What type of interview is this? (Technical, HR, Behavioral)
- What is your experience level? (Junior, Mid, Senior)
- What tech stack or domain should we focus on?
- How many questions should I prepare?

Wait for the user's responses one by one and confirm each.
Once you have the questions, ask them one at a time and wait for the spoken answer.
Be conversational, supportive and professional throughout.`,
	Voice: "alloy",
}

// SetupPrompt is the opening script for a voice setup call.
func SetupPrompt(userName string) string {
	return fmt.Sprintf(`Hi %s! Before we begin, could you tell me:
1. What role are you interviewing for?
2. What type of interview (Technical / HR / Behavioral)?
3. What's your experience level? (Junior / Mid / Senior)
4. What tech stack should I focus on?
5. How many questions would you like me to ask?`, userName)
}

// FormatQuestions renders questions as a dash list for the "questions"
// template variable.
func FormatQuestions(questions []string) string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		lines = append(lines, "- "+q)
	}
	return strings.Join(lines, "\n")
}

// PrimeMessage builds the message that hands a running call its interview
// questions.
func PrimeMessage(questions []string) Message {
	formatted := FormatQuestions(questions)
	return Message{
		Type:           "add-message",
		Role:           "system",
		Content:        "The interview questions are ready. Ask them one at a time:\n" + formatted,
		VariableValues: map[string]string{"questions": formatted},
	}
}
