package grading

import (
	"context"
	"strings"
	"testing"

	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
)

func TestGradeAnswerSuccess(t *testing.T) {
	mock := llm.NewMock(llm.MockResult{Response: map[string]any{
		"grade":      92.0,
		"feedback":   "Thorough and correct.",
		"strengths":  []any{"complete"},
		"weaknesses": []any{},
	}})
	g := NewGrader(mock, prompts.NewSet(""))

	res := g.GradeAnswer(context.Background(), "Q", "C", "R", "my answer")
	if res.Grade != 92.0 {
		t.Errorf("grade = %v, want 92", res.Grade)
	}
	if res.Feedback != "Thorough and correct." {
		t.Errorf("feedback = %q", res.Feedback)
	}
}

func TestGradeAnswerFallbackTiers(t *testing.T) {
	tests := []struct {
		name      string
		char      string
		answerLen int
		wantGrade float64
	}{
		{"long answer", "a", 600, 85.0},
		{"medium answer", "a", 300, 75.0},
		{"short answer", "a", 100, 65.0},
		{"minimal answer", "a", 10, 55.0},
		{"boundary 500 is medium", "a", 500, 75.0},
		{"boundary 200 is short", "a", 200, 65.0},
		{"boundary 50 is minimal", "a", 50, 55.0},
		{"empty", "a", 0, 55.0},
		// Multibyte characters must tier by character count, not byte count:
		// 300 Cyrillic characters is 600 bytes but still the medium tier.
		{"medium cyrillic answer", "ы", 300, 75.0},
		{"long cyrillic answer", "ы", 600, 85.0},
		{"minimal cyrillic answer", "ы", 10, 55.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrader(&llm.Mock{Unavailable: true}, prompts.NewSet(""))
			answer := strings.Repeat(tt.char, tt.answerLen)

			res := g.GradeAnswer(context.Background(), "Q", "C", "R", answer)
			if res.Grade != tt.wantGrade {
				t.Errorf("grade = %v, want %v", res.Grade, tt.wantGrade)
			}
			if res.Grade < 0 || res.Grade > 100 {
				t.Errorf("grade %v out of range", res.Grade)
			}
			found := false
			for _, w := range res.Weaknesses {
				if strings.Contains(w, "AI grading unavailable") {
					found = true
				}
			}
			if !found {
				t.Error("fallback result should note that AI grading was unavailable")
			}
		})
	}
}

func TestGradeAnswerFallbackOnRejectedResponse(t *testing.T) {
	mock := llm.NewMock(llm.MockResult{Response: map[string]any{
		"grade":    150.0, // out of range
		"feedback": "nope",
	}})
	g := NewGrader(mock, prompts.NewSet(""))

	res := g.GradeAnswer(context.Background(), "Q", "C", "R", strings.Repeat("a", 600))
	if res.Grade != 85.0 {
		t.Errorf("grade = %v, want length-tier fallback 85", res.Grade)
	}
}

func TestGradeAnswerFallbackOnGatewayError(t *testing.T) {
	mock := llm.NewMock(llm.MockResult{Err: &llm.RequestFailedError{Attempts: 3}})
	g := NewGrader(mock, prompts.NewSet(""))

	res := g.GradeAnswer(context.Background(), "Q", "C", "R", "tiny")
	if res.Grade != 55.0 {
		t.Errorf("grade = %v, want 55", res.Grade)
	}
}

func TestGradeAnswerWhitespaceTrimmedForTiering(t *testing.T) {
	g := NewGrader(&llm.Mock{Unavailable: true}, prompts.NewSet(""))
	answer := "   " + strings.Repeat("a", 40) + "   "

	res := g.GradeAnswer(context.Background(), "Q", "C", "R", answer)
	if res.Grade != 55.0 {
		t.Errorf("grade = %v, want 55 (padding must not count)", res.Grade)
	}
}
