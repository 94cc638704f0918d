package contract

import (
	"strings"
	"testing"
)

func TestDecodeQuestion(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		wantOK bool
	}{
		{"valid", map[string]any{
			"question_text": "Explain TCP handshakes.",
			"context":       "Transport layer protocols.",
			"rubric":        "Correctness - 100 points.",
		}, true},
		{"missing rubric", map[string]any{
			"question_text": "Explain TCP handshakes.",
			"context":       "Transport layer protocols.",
		}, false},
		{"empty question text", map[string]any{
			"question_text": "",
			"context":       "c",
			"rubric":        "r",
		}, false},
		{"rubric wrong type", map[string]any{
			"question_text": "q",
			"context":       "c",
			"rubric":        map[string]any{"Understanding": 50.0},
		}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := DecodeQuestion(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && q.QuestionText == "" {
				t.Error("decoded question has empty text")
			}
		})
	}
}

func TestDecodeGrading(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		wantOK bool
	}{
		{"valid", map[string]any{
			"grade":      87.5,
			"feedback":   "Good coverage.",
			"strengths":  []any{"clear"},
			"weaknesses": []any{"short"},
		}, true},
		{"lists optional", map[string]any{
			"grade":    60.0,
			"feedback": "ok",
		}, true},
		{"grade above range", map[string]any{
			"grade":    120.0,
			"feedback": "ok",
		}, false},
		{"grade below range", map[string]any{
			"grade":    -5.0,
			"feedback": "ok",
		}, false},
		{"grade wrong type", map[string]any{
			"grade":    "A+",
			"feedback": "ok",
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok := DecodeGrading(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (g.Grade < 0 || g.Grade > 100) {
				t.Errorf("grade %v out of range", g.Grade)
			}
		})
	}
}

func TestDecodeFinalGrade(t *testing.T) {
	raw := map[string]any{
		"final_grade":     80.0,
		"explanation":     "Solid performance overall.",
		"question_scores": []any{80.0, 90.0, 70.0},
	}
	fg, ok := DecodeFinalGrade(raw)
	if !ok {
		t.Fatal("valid final grade rejected")
	}
	if fg.FinalGrade != 80.0 || len(fg.QuestionScores) != 3 {
		t.Errorf("unexpected decode: %+v", fg)
	}

	delete(raw, "question_scores")
	if _, ok := DecodeFinalGrade(raw); ok {
		t.Error("final grade without question_scores accepted")
	}
}

func TestDecodeExam(t *testing.T) {
	valid := map[string]any{
		"questions": []any{
			map[string]any{
				"question_number": 1.0,
				"question_text":   "q1",
				"context":         "c1",
				"rubric":          "r1",
			},
			map[string]any{
				"question_number": 2.0,
				"question_text":   "q2",
				"context":         "c2",
				"rubric":          "r2",
			},
		},
	}
	exam, ok := DecodeExam(valid)
	if !ok {
		t.Fatal("valid exam rejected")
	}
	if len(exam.Questions) != 2 || exam.Questions[1].QuestionNumber != 2 {
		t.Errorf("unexpected decode: %+v", exam)
	}

	t.Run("fractional question number rejected", func(t *testing.T) {
		bad := map[string]any{
			"questions": []any{
				map[string]any{
					"question_number": 1.5,
					"question_text":   "q",
					"context":         "c",
					"rubric":          "r",
				},
			},
		}
		if _, ok := DecodeExam(bad); ok {
			t.Error("fractional question_number accepted")
		}
	})

	t.Run("object rubric rejected", func(t *testing.T) {
		bad := map[string]any{
			"questions": []any{
				map[string]any{
					"question_number": 1.0,
					"question_text":   "q",
					"context":         "c",
					"rubric":          map[string]any{"Understanding": 100.0},
				},
			},
		}
		if _, ok := DecodeExam(bad); ok {
			t.Error("object rubric accepted; FlattenRubric must run first")
		}
	})
}

func TestFlattenRubric(t *testing.T) {
	t.Run("string passes through", func(t *testing.T) {
		if got := FlattenRubric("Clarity - 100 points."); got != "Clarity - 100 points." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("criteria object", func(t *testing.T) {
		got := FlattenRubric(map[string]any{
			"Understanding": 25.0,
			"Application":   75.0,
		})
		for _, want := range []string{"Understanding", "Application", "25 points", "75 points", "Total: 100 points"} {
			if !strings.Contains(got, want) {
				t.Errorf("flattened rubric %q missing %q", got, want)
			}
		}
	})

	t.Run("deterministic key order", func(t *testing.T) {
		m := map[string]any{"B": 50.0, "A": 50.0}
		first := FlattenRubric(m)
		for i := 0; i < 10; i++ {
			if got := FlattenRubric(m); got != first {
				t.Fatalf("non-deterministic output: %q vs %q", got, first)
			}
		}
		if strings.Index(first, "A") > strings.Index(first, "B") {
			t.Errorf("keys not sorted: %q", first)
		}
	})

	t.Run("mixed values omit total", func(t *testing.T) {
		got := FlattenRubric(map[string]any{"Style": "judged holistically", "Depth": 60.0})
		if strings.Contains(got, "Total:") {
			t.Errorf("total should be omitted for non-numeric criteria: %q", got)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if got := FlattenRubric(nil); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
