package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"examforge/internal/contract"
	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
)

// MaxExamQuestions bounds the number of questions in a single exam.
const MaxExamQuestions = 30

// Config controls generator retry budgets. The fixed attempt counts are
// deliberate configuration values so tests can shrink them.
type Config struct {
	// MaxQuestionAttempts is the attempt budget per single question.
	MaxQuestionAttempts int

	// MaxExamAttempts is the whole-exam attempt budget: a failed
	// post-generation check retries the full exam, never a partial re-ask.
	MaxExamAttempts int

	// DuplicateThreshold is the similarity score at or above which two
	// questions in one exam are rejected as near-duplicates.
	DuplicateThreshold float64
}

// DefaultConfig returns the standard retry budgets.
func DefaultConfig() Config {
	return Config{
		MaxQuestionAttempts: 5,
		MaxExamAttempts:     5,
		DuplicateThreshold:  DuplicateThreshold,
	}
}

// Generator produces exam questions via the LLM, de-duplicating against its
// own session and degrading to canned content when the model is unavailable
// or keeps failing.
//
// One Generator instance covers one exam-generation lifetime. The seen set
// is private session state; sharing an instance across unrelated exams would
// cause spurious cross-exam duplicate rejection. Construct a fresh Generator
// per request.
type Generator struct {
	gw      llm.Gateway
	prompts *prompts.Set
	cfg     Config
	seen    map[string]struct{}
}

// NewGenerator creates a Generator with its own empty duplicate-tracking set.
func NewGenerator(gw llm.Gateway, set *prompts.Set, cfg Config) *Generator {
	if cfg.MaxQuestionAttempts <= 0 {
		cfg.MaxQuestionAttempts = 5
	}
	if cfg.MaxExamAttempts <= 0 {
		cfg.MaxExamAttempts = 5
	}
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = DuplicateThreshold
	}
	return &Generator{
		gw:      gw,
		prompts: set,
		cfg:     cfg,
		seen:    make(map[string]struct{}),
	}
}

// GenerateQuestion produces a single question for the topic and difficulty.
// It always returns a usable question: after the attempt budget is exhausted,
// or immediately when no credential is configured, a canned fallback is used.
func (g *Generator) GenerateQuestion(ctx context.Context, topic, difficulty string, questionNumber int) *contract.GeneratedQuestion {
	if !g.gw.Available() {
		return g.fallbackQuestion(questionNumber)
	}

	prompt := prompts.Format(g.prompts.Load(prompts.QuestionGen), map[string]string{
		"topic":           topic,
		"difficulty":      difficulty,
		"question_number": strconv.Itoa(questionNumber),
	})

	for attempt := 1; attempt <= g.cfg.MaxQuestionAttempts; attempt++ {
		raw, err := g.gw.GenerateJSON(ctx, prompt, prompts.GeneratorSystem)
		if errors.Is(err, llm.ErrUnavailable) {
			break
		}
		if err != nil {
			slog.Warn("question generation attempt failed", "attempt", attempt, "error", err)
			continue
		}

		q, ok := contract.DecodeQuestion(raw)
		if !ok {
			slog.Warn("question generation attempt rejected by validator", "attempt", attempt)
			continue
		}

		norm := NormalizeText(q.QuestionText)
		if _, dup := g.seen[norm]; dup {
			slog.Warn("question duplicates an earlier one, retrying", "attempt", attempt)
			continue
		}

		g.seen[norm] = struct{}{}
		return q
	}

	slog.Warn("question generation exhausted retries, using fallback", "question_number", questionNumber)
	return g.fallbackQuestion(questionNumber)
}

// GenerateExam produces a full exam of exactly numQuestions questions,
// numbered 1..N with no near-duplicates. It returns an error only for
// invalid arguments; generation failures always degrade to fallback content.
func (g *Generator) GenerateExam(ctx context.Context, topic string, numQuestions int, difficulty, additionalDetails string) (*contract.GeneratedExam, error) {
	if numQuestions < 1 || numQuestions > MaxExamQuestions {
		return nil, fmt.Errorf("grading: num questions must be in [1,%d], got %d", MaxExamQuestions, numQuestions)
	}

	if !g.gw.Available() {
		return g.fallbackExam(numQuestions), nil
	}

	prompt := prompts.Format(g.prompts.Load(prompts.ExamGen), map[string]string{
		"topic":              topic,
		"num_questions":      strconv.Itoa(numQuestions),
		"difficulty":         difficulty,
		"additional_details": additionalDetails,
	})

	var failures []string
	for attempt := 1; attempt <= g.cfg.MaxExamAttempts; attempt++ {
		raw, err := g.gw.GenerateJSON(ctx, prompt, prompts.GeneratorSystem)
		if errors.Is(err, llm.ErrUnavailable) {
			return g.fallbackExam(numQuestions), nil
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("attempt %d: %v", attempt, err))
			continue
		}

		flattenExamRubrics(raw)

		exam, ok := contract.DecodeExam(raw)
		if !ok {
			failures = append(failures, fmt.Sprintf("attempt %d: schema rejected", attempt))
			continue
		}
		if len(exam.Questions) != numQuestions {
			failures = append(failures, fmt.Sprintf("attempt %d: got %d questions, want %d", attempt, len(exam.Questions), numQuestions))
			continue
		}
		if err := checkNumbering(exam.Questions, numQuestions); err != nil {
			failures = append(failures, fmt.Sprintf("attempt %d: %v", attempt, err))
			continue
		}
		if i, j, score := findNearDuplicate(exam.Questions, g.cfg.DuplicateThreshold); i >= 0 {
			failures = append(failures, fmt.Sprintf("attempt %d: questions %d and %d are near-duplicates (similarity %.2f)",
				attempt, exam.Questions[i].QuestionNumber, exam.Questions[j].QuestionNumber, score))
			continue
		}

		sort.Slice(exam.Questions, func(a, b int) bool {
			return exam.Questions[a].QuestionNumber < exam.Questions[b].QuestionNumber
		})
		for _, q := range exam.Questions {
			g.seen[NormalizeText(q.QuestionText)] = struct{}{}
		}
		return exam, nil
	}

	slog.Warn("exam generation exhausted retries, using fallback",
		"attempts", g.cfg.MaxExamAttempts,
		"failures", strings.Join(failures, "; "))
	return g.fallbackExam(numQuestions), nil
}

// fallbackQuestion hands out the first unused entry from the canned bank,
// synthesizing a generic placeholder once the bank is exhausted. The chosen
// question is always registered in the seen set.
func (g *Generator) fallbackQuestion(questionNumber int) *contract.GeneratedQuestion {
	for _, q := range fallbackBank {
		norm := NormalizeText(q.QuestionText)
		if _, used := g.seen[norm]; used {
			continue
		}
		g.seen[norm] = struct{}{}
		out := q
		return &out
	}

	q := placeholderQuestion(questionNumber)
	g.seen[NormalizeText(q.QuestionText)] = struct{}{}
	return &q
}

func (g *Generator) fallbackExam(numQuestions int) *contract.GeneratedExam {
	exam := &contract.GeneratedExam{
		Questions: make([]contract.NumberedQuestion, 0, numQuestions),
	}
	for i := 1; i <= numQuestions; i++ {
		q := g.fallbackQuestion(i)
		exam.Questions = append(exam.Questions, contract.NumberedQuestion{
			GeneratedQuestion: *q,
			QuestionNumber:    i,
		})
	}
	return exam
}

// flattenExamRubrics rewrites object-valued rubrics in the raw response into
// strings before validation.
func flattenExamRubrics(raw map[string]any) {
	questions, ok := raw["questions"].([]any)
	if !ok {
		return
	}
	for _, item := range questions {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if r, present := q["rubric"]; present {
			if _, isString := r.(string); !isString {
				q["rubric"] = contract.FlattenRubric(r)
			}
		}
	}
}

// checkNumbering verifies that question numbers, once sorted, are exactly
// the sequence 1..n.
func checkNumbering(questions []contract.NumberedQuestion, n int) error {
	nums := make([]int, len(questions))
	for i, q := range questions {
		nums[i] = q.QuestionNumber
	}
	sort.Ints(nums)
	for i, got := range nums {
		if got != i+1 {
			return fmt.Errorf("question numbers are not the sequence 1..%d", n)
		}
	}
	return nil
}

// findNearDuplicate returns the indexes and score of the first question pair
// at or above the threshold, or (-1, -1, 0) when none exists.
func findNearDuplicate(questions []contract.NumberedQuestion, threshold float64) (int, int, float64) {
	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			if score := Similarity(questions[i].QuestionText, questions[j].QuestionText); score >= threshold {
				return i, j, score
			}
		}
	}
	return -1, -1, 0
}
