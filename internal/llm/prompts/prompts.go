// Package prompts loads and formats the prompt templates used by the
// generation and grading pipeline. Templates are plain text files with
// {name} placeholders; every template has a hardcoded default so the
// pipeline keeps working when the template assets are absent.
package prompts

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Template file names.
const (
	QuestionGen   = "question_gen_v1.txt"
	ExamGen       = "exam_gen_v1.txt"
	GradeResponse = "grade_response_v1.txt"
	FinalGrade    = "final_grade_v1.txt"
)

// System prompts sent alongside each template.
const (
	GeneratorSystem = "You are an expert computer science professor creating exam questions. Always respond with valid JSON."
	GraderSystem    = "You are an expert grader evaluating student exam answers. Be fair and constructive. Always respond with valid JSON."
	FinalizerSystem = "You are an expert evaluator calculating final exam grades. Be fair and comprehensive. Always respond with valid JSON."
)

// Set resolves template names against an optional on-disk override
// directory, falling back to the built-in defaults.
type Set struct {
	dir string
}

// NewSet creates a Set. dir may be empty, in which case only the built-in
// defaults are used.
func NewSet(dir string) *Set {
	return &Set{dir: dir}
}

// Load returns the template text for the given name. A file in the override
// directory wins; otherwise the built-in default is returned.
func (s *Set) Load(name string) string {
	if s.dir != "" {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err == nil {
			return strings.TrimSpace(string(data))
		}
		if !os.IsNotExist(err) {
			slog.Warn("failed to read prompt template, using default", "name", name, "error", err)
		}
	}
	return defaults[name]
}

// Format substitutes {name} placeholders with the given values. It is pure
// string substitution with no control flow; placeholders without a value
// pass through untouched (that is a caller bug, not a runtime condition).
func Format(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

var defaults = map[string]string{
	QuestionGen: `Generate an essay-style exam question for a computer science course.

Topic: {topic}
Difficulty: {difficulty}
Question Number: {question_number}

Please provide:
1. A clear, thought-provoking question
2. Relevant background context
3. A detailed grading rubric

Respond in JSON format with the following structure:
{
    "question_text": "The question text",
    "context": "Background context and information",
    "rubric": "Detailed grading rubric with criteria"
}`,

	ExamGen: `Generate a complete essay-style exam.

Topic: {topic}
Number of Questions: {num_questions}
Difficulty: {difficulty}
Additional Details: {additional_details}

Requirements:
1. Produce exactly {num_questions} questions, numbered sequentially starting from 1.
2. Each question must cover a distinct aspect of the topic. Do not repeat or rephrase questions.
3. Each question needs background context and a detailed grading rubric.
4. The rubric MUST be a single descriptive string, never a nested object.

Respond in JSON format with the following structure:
{
    "questions": [
        {
            "question_number": 1,
            "question_text": "The question text",
            "context": "Background context and information",
            "rubric": "Detailed grading rubric with criteria"
        }
    ]
}`,

	GradeResponse: `Grade the following student answer for an exam question.

Question: {question_text}

Context: {context}

Grading Rubric: {rubric}

Student Answer: {student_answer}

Instructions:
1. Provide a numerical grade (0-100) based on the rubric and answer quality
2. Provide detailed feedback explaining the grade
3. List strengths of the answer in a JSON array
4. List weaknesses of the answer in a JSON array

Respond only in JSON format exactly like this:
{
    "grade": <numerical grade 0-100>,
    "feedback": "Detailed feedback text",
    "strengths": ["strength1", "strength2"],
    "weaknesses": ["weakness1", "weakness2"]
}
Do not include any notes or text outside the JSON object.`,

	FinalGrade: `Calculate the final exam grade based on the following question scores and feedback.

Question Scores: {question_scores}

Feedback Summary: {feedback_summary}

Please provide:
1. A final grade (0-100)
2. A comprehensive explanation of the final grade
3. The individual question scores as a list

Respond in JSON format:
{
    "final_grade": 85.0,
    "explanation": "Overall explanation of performance",
    "question_scores": [85.0, 90.0, 80.0]
}`,
}
