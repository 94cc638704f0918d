package grading

import (
	"context"
	"log/slog"

	"examforge/internal/contract"
	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
)

// Grader grades free-text answers against a question, context, and rubric.
// Safe for concurrent use: it holds no per-exam state.
type Grader struct {
	gw      llm.Gateway
	prompts *prompts.Set
}

// NewGrader creates a Grader.
func NewGrader(gw llm.Gateway, set *prompts.Set) *Grader {
	return &Grader{gw: gw, prompts: set}
}

// GradeAnswer grades one answer with a single LLM call (the gateway's own
// transport retries aside). It always returns a usable result: when the
// model is unavailable, fails, or returns an invalid response, the grade
// falls back to a length-based heuristic so the exam can still complete.
func (g *Grader) GradeAnswer(ctx context.Context, questionText, questionContext, rubric, studentAnswer string) *contract.GradingResult {
	if !g.gw.Available() {
		return fallbackGrade(studentAnswer)
	}

	prompt := prompts.Format(g.prompts.Load(prompts.GradeResponse), map[string]string{
		"question_text":  questionText,
		"context":        questionContext,
		"rubric":         rubric,
		"student_answer": studentAnswer,
	})

	raw, err := g.gw.GenerateJSON(ctx, prompt, prompts.GraderSystem)
	if err != nil {
		slog.Warn("grading call failed, using heuristic fallback", "error", err)
		return fallbackGrade(studentAnswer)
	}

	result, ok := contract.DecodeGrading(raw)
	if !ok {
		slog.Warn("grading response rejected by validator, using heuristic fallback")
		return fallbackGrade(studentAnswer)
	}
	return result
}
