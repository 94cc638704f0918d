package grading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"examforge/internal/contract"
	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
)

// Finalizer aggregates per-question grades and feedback into one final exam
// grade with an explanation.
type Finalizer struct {
	gw      llm.Gateway
	prompts *prompts.Set
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(gw llm.Gateway, set *prompts.Set) *Finalizer {
	return &Finalizer{gw: gw, prompts: set}
}

// CalculateFinalGrade summarizes question scores and feedback into a final
// grade via a single LLM call, falling back to the arithmetic mean of the
// scores (0 for an empty exam) on any failure.
func (f *Finalizer) CalculateFinalGrade(ctx context.Context, questionScores []float64, feedbackSummary []string) *contract.FinalGrade {
	if !f.gw.Available() {
		return fallbackFinalGrade(questionScores)
	}

	scoreParts := make([]string, len(questionScores))
	for i, s := range questionScores {
		scoreParts[i] = fmt.Sprintf("%.1f", s)
	}
	feedbackParts := make([]string, len(feedbackSummary))
	for i, fb := range feedbackSummary {
		feedbackParts[i] = "- " + fb
	}

	prompt := prompts.Format(f.prompts.Load(prompts.FinalGrade), map[string]string{
		"question_scores":  strings.Join(scoreParts, ", "),
		"feedback_summary": strings.Join(feedbackParts, "\n"),
	})

	raw, err := f.gw.GenerateJSON(ctx, prompt, prompts.FinalizerSystem)
	if err != nil {
		slog.Warn("final grade call failed, using average fallback", "error", err)
		return fallbackFinalGrade(questionScores)
	}

	result, ok := contract.DecodeFinalGrade(raw)
	if !ok {
		slog.Warn("final grade response rejected by validator, using average fallback")
		return fallbackFinalGrade(questionScores)
	}
	return result
}
