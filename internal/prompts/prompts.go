// Package prompts holds the LLM prompts behind the interview services.
package prompts

import (
	"fmt"
	"strings"
)

const GenerationSystem = "You prepare job interview questions. Reply with a JSON array of strings and nothing else."

// Generation asks for amount questions for the given job. An empty techStack
// is described as general.
func Generation(role, level, techStack, kind string, amount int) string {
	if techStack == "" {
		techStack = "general"
	}
	return fmt.Sprintf(`Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this:
["Question 1", "Question 2", "Question 3"]`, role, level, techStack, kind, amount)
}

const ResumeSystem = "You are an AI interviewer analyzing a candidate's resume. Reply with valid JSON only."

// Resume asks for resume-specific questions and improvement suggestions for a
// base64-encoded document.
func Resume(filename, base64Document string) string {
	var b strings.Builder
	b.WriteString("The following is a Base64-encoded resume")
	if filename != "" {
		fmt.Fprintf(&b, " (%s)", filename)
	}
	b.WriteString(":\n")
	b.WriteString(base64Document)
	b.WriteString(`

Read it and extract the useful information: skills, education, experience and projects.
Then generate 8 to 10 interview questions based specifically on the resume content,
and 3 to 5 short suggestions to improve the resume's clarity or impact.

Return ONLY valid JSON in this shape:
{
  "questions": ["What challenges did you face in your XYZ project?"],
  "resume_improvements": ["Add measurable outcomes to your project descriptions"]
}`)
	return b.String()
}

const FeedbackSystem = "You are a professional interviewer analyzing a mock interview."

// FeedbackCategories are the scored dimensions, in report order.
var FeedbackCategories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem-Solving",
	"Cultural & Role Fit",
	"Confidence & Clarity",
}

// Feedback asks for a scored evaluation of a formatted transcript.
func Feedback(transcript string) string {
	var b strings.Builder
	b.WriteString("You are an AI interviewer analyzing a mock interview. Evaluate the candidate thoroughly.\n\n")
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\nScore from 0 to 100 in:\n")
	for _, c := range FeedbackCategories {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString(`
Return ONLY valid JSON in this shape:
{
  "totalScore": 0,
  "categoryScores": [{"name": "Communication Skills", "score": 0, "comment": ""}],
  "strengths": [""],
  "areasForImprovement": [""],
  "finalAssessment": ""
}`)
	return b.String()
}
