package exam

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
	"examforge/internal/model"
	"examforge/internal/notify"
	"examforge/internal/store"
)

func newTestService(t *testing.T, gw llm.Gateway) (*Service, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := model.ExamConfig{NumQuestions: 3, Topic: "Computer Science", Difficulty: "intermediate"}
	svc := NewService(s, gw, prompts.NewSet(""), notify.New(s, logger), cfg, logger)
	return svc, s
}

// unavailableGateway drives the whole pipeline through its fallback paths.
func unavailableGateway() *llm.Mock {
	m := llm.NewMock()
	m.Unavailable = true
	return m
}

func TestStartExamFallback(t *testing.T) {
	svc, s := newTestService(t, unavailableGateway())

	exam, err := svc.StartExam(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("StartExam() error = %v", err)
	}
	if exam.Status != model.StatusInProgress {
		t.Errorf("Status = %q, want %q", exam.Status, model.StatusInProgress)
	}

	questions, err := s.QuestionsForExam(exam.ID)
	if err != nil {
		t.Fatalf("QuestionsForExam() error = %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(questions))
	}
	for i, q := range questions {
		if q.QuestionNumber != i+1 {
			t.Errorf("questions[%d].QuestionNumber = %d, want %d", i, q.QuestionNumber, i+1)
		}
		if q.Text == "" {
			t.Errorf("questions[%d] has empty text", i)
		}
	}
}

func TestCurrentQuestionAdvances(t *testing.T) {
	svc, _ := newTestService(t, unavailableGateway())
	ctx := context.Background()

	exam, err := svc.StartExam(ctx, "Bob")
	if err != nil {
		t.Fatalf("StartExam() error = %v", err)
	}

	q1, err := svc.CurrentQuestion(ctx, exam.ID)
	if err != nil {
		t.Fatalf("CurrentQuestion() error = %v", err)
	}
	if q1.QuestionNumber != 1 {
		t.Errorf("QuestionNumber = %d, want 1", q1.QuestionNumber)
	}

	if _, err := svc.SubmitAnswer(ctx, q1.ID, "An answer."); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	q2, err := svc.CurrentQuestion(ctx, exam.ID)
	if err != nil {
		t.Fatalf("CurrentQuestion() error = %v", err)
	}
	if q2.QuestionNumber != 2 {
		t.Errorf("QuestionNumber after one answer = %d, want 2", q2.QuestionNumber)
	}
}

func TestCurrentQuestionExhausted(t *testing.T) {
	svc, _ := newTestService(t, unavailableGateway())
	ctx := context.Background()

	exam, _ := svc.StartExam(ctx, "Carol")
	for i := 0; i < 3; i++ {
		q, err := svc.CurrentQuestion(ctx, exam.ID)
		if err != nil {
			t.Fatalf("CurrentQuestion() error = %v", err)
		}
		if _, err := svc.SubmitAnswer(ctx, q.ID, "Answer."); err != nil {
			t.Fatalf("SubmitAnswer() error = %v", err)
		}
	}

	if _, err := svc.CurrentQuestion(ctx, exam.ID); !errors.Is(err, ErrNoCurrentQuestion) {
		t.Errorf("CurrentQuestion() error = %v, want ErrNoCurrentQuestion", err)
	}
}

func TestCurrentQuestionUnknownExam(t *testing.T) {
	svc, _ := newTestService(t, unavailableGateway())

	_, err := svc.CurrentQuestion(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("CurrentQuestion(999) error = %v, want sql.ErrNoRows", err)
	}
}

func TestSubmitAnswerGradesAndFlagsFollowup(t *testing.T) {
	// Mock returns a low grade; follow-up must be flagged.
	gw := llm.NewMock(
		llm.MockResult{Response: map[string]any{
			"grade":      60.0,
			"feedback":   "Needs more depth.",
			"strengths":  []any{"Attempted the question"},
			"weaknesses": []any{"Shallow coverage"},
		}},
	)
	svc, s := newTestService(t, gw)
	ctx := context.Background()

	examID, _ := s.CreateExam("Dave", "CS", "intermediate")
	qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: 1, Text: "Explain recursion."})

	q, err := svc.SubmitAnswer(ctx, qid, "A function that calls itself.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if q.Grade == nil || *q.Grade != 60 {
		t.Errorf("Grade = %v, want 60", q.Grade)
	}
	if q.Feedback != "Needs more depth." {
		t.Errorf("Feedback = %q", q.Feedback)
	}
	if !q.NeedsFollowup {
		t.Error("NeedsFollowup = false, want true for grade below 70")
	}
}

func TestSubmitAnswerFallbackGrading(t *testing.T) {
	svc, s := newTestService(t, unavailableGateway())
	ctx := context.Background()

	examID, _ := s.CreateExam("Eve", "CS", "intermediate")
	qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: 1, Text: "Explain Big O."})

	answer := strings.Repeat("detail ", 100) // > 500 chars
	q, err := svc.SubmitAnswer(ctx, qid, answer)
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if q.Grade == nil || *q.Grade != 85 {
		t.Errorf("Grade = %v, want 85 from length tier", q.Grade)
	}
	if q.NeedsFollowup {
		t.Error("NeedsFollowup = true, want false for grade 85")
	}
}

func TestCompleteExamFallbackMean(t *testing.T) {
	svc, s := newTestService(t, unavailableGateway())
	ctx := context.Background()

	examID, _ := s.CreateExam("Frank", "CS", "intermediate")
	for i, grade := range []float64{80, 90, 70} {
		qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: i + 1, Text: "q"})
		s.UpdateAnswer(qid, "a")
		s.UpdateGrade(qid, grade, "fb", false)
	}

	exam, err := svc.CompleteExam(ctx, examID)
	if err != nil {
		t.Fatalf("CompleteExam() error = %v", err)
	}
	if exam.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", exam.Status, model.StatusCompleted)
	}
	if exam.FinalGrade == nil || *exam.FinalGrade != 80 {
		t.Errorf("FinalGrade = %v, want 80 (mean)", exam.FinalGrade)
	}

	notifications, _ := s.ListNotifications(examID)
	if len(notifications) != 1 || notifications[0].Kind != model.NotifyExamCompleted {
		t.Errorf("notifications = %+v, want one exam_completed", notifications)
	}
}

func TestCompleteExamLLMFinalGrade(t *testing.T) {
	gw := llm.NewMock(
		llm.MockResult{Response: map[string]any{
			"final_grade":     88.0,
			"explanation":     "Consistent strong answers.",
			"question_scores": []any{85.0, 90.0},
		}},
	)
	svc, s := newTestService(t, gw)
	ctx := context.Background()

	examID, _ := s.CreateExam("Grace", "CS", "intermediate")
	for i, grade := range []float64{85, 90} {
		qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: i + 1, Text: "q"})
		s.UpdateAnswer(qid, "a")
		s.UpdateGrade(qid, grade, "fb", false)
	}

	exam, err := svc.CompleteExam(ctx, examID)
	if err != nil {
		t.Fatalf("CompleteExam() error = %v", err)
	}
	if exam.FinalGrade == nil || *exam.FinalGrade != 88 {
		t.Errorf("FinalGrade = %v, want 88", exam.FinalGrade)
	}
	if exam.FinalExplanation != "Consistent strong answers." {
		t.Errorf("FinalExplanation = %q", exam.FinalExplanation)
	}
}

func TestRegradeAnswerNotifiesOnChange(t *testing.T) {
	gw := llm.NewMock(
		llm.MockResult{Response: map[string]any{
			"grade": 65.0, "feedback": "First pass.",
			"strengths": []any{"s"}, "weaknesses": []any{"w"},
		}},
		llm.MockResult{Response: map[string]any{
			"grade": 82.0, "feedback": "Better on review.",
			"strengths": []any{"s"}, "weaknesses": []any{"w"},
		}},
	)
	svc, s := newTestService(t, gw)
	ctx := context.Background()

	examID, _ := s.CreateExam("Heidi", "CS", "intermediate")
	qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: 1, Text: "Explain recursion."})

	if _, err := svc.SubmitAnswer(ctx, qid, "An answer."); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	q, err := svc.RegradeAnswer(ctx, qid)
	if err != nil {
		t.Fatalf("RegradeAnswer() error = %v", err)
	}
	if q.Grade == nil || *q.Grade != 82 {
		t.Errorf("Grade = %v, want 82", q.Grade)
	}

	notifications, _ := s.ListNotifications(examID)
	if len(notifications) != 1 || notifications[0].Kind != model.NotifyGradeChanged {
		t.Fatalf("notifications = %+v, want one grade_changed", notifications)
	}
	if !strings.Contains(notifications[0].Message, "65.0") || !strings.Contains(notifications[0].Message, "82.0") {
		t.Errorf("Message = %q, want old and new grades", notifications[0].Message)
	}
}

func TestRegradeAnswerRequiresAnswer(t *testing.T) {
	svc, s := newTestService(t, unavailableGateway())

	examID, _ := s.CreateExam("Ivan", "CS", "intermediate")
	qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: 1, Text: "q"})

	if _, err := svc.RegradeAnswer(context.Background(), qid); !errors.Is(err, ErrNotAnswered) {
		t.Errorf("RegradeAnswer() error = %v, want ErrNotAnswered", err)
	}
}

func TestStartExamInvalidCountLeavesNoExam(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := model.ExamConfig{NumQuestions: 0, Topic: "CS", Difficulty: "intermediate"}
	svc := NewService(s, unavailableGateway(), prompts.NewSet(""), notify.New(s, logger), cfg, logger)

	if _, err := svc.StartExam(context.Background(), "Alice"); err == nil {
		t.Fatal("StartExam() with zero questions, want error")
	}

	count, err := s.ExamCount()
	if err != nil {
		t.Fatalf("ExamCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("ExamCount() = %d after failed start, want 0", count)
	}
}

func TestDisputeExamRequiresCompletion(t *testing.T) {
	svc, _ := newTestService(t, unavailableGateway())
	ctx := context.Background()

	exam, _ := svc.StartExam(ctx, "Kim")
	if _, err := svc.DisputeExam(ctx, exam.ID); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("DisputeExam() on in-progress exam error = %v, want ErrNotCompleted", err)
	}
}

func TestDisputeRegradeRecompleteFlow(t *testing.T) {
	gw := llm.NewMock(
		llm.MockResult{Response: map[string]any{
			"grade": 82.0, "feedback": "Better on review.",
			"strengths": []any{"s"}, "weaknesses": []any{"w"},
		}},
	)
	svc, s := newTestService(t, gw)
	ctx := context.Background()

	examID, _ := s.CreateExam("Leo", "CS", "intermediate")
	qid, _ := s.InsertQuestion(model.Question{ExamID: examID, QuestionNumber: 1, Text: "q"})
	s.UpdateAnswer(qid, "An answer.")
	s.UpdateGrade(qid, 65, "First pass.", true)
	s.CompleteExam(examID, 65, "Average of 1 questions.")

	disputed, err := svc.DisputeExam(ctx, examID)
	if err != nil {
		t.Fatalf("DisputeExam() error = %v", err)
	}
	if disputed.Status != model.StatusDisputed {
		t.Errorf("Status = %q, want %q", disputed.Status, model.StatusDisputed)
	}

	q, err := svc.RegradeAnswer(ctx, qid)
	if err != nil {
		t.Fatalf("RegradeAnswer() error = %v", err)
	}
	if q.Grade == nil || *q.Grade != 82 {
		t.Errorf("Grade = %v, want 82", q.Grade)
	}

	// The final-grade call falls back to the mean of the regraded scores.
	recompleted, err := svc.CompleteExam(ctx, examID)
	if err != nil {
		t.Fatalf("CompleteExam() error = %v", err)
	}
	if recompleted.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", recompleted.Status, model.StatusCompleted)
	}
	if recompleted.FinalGrade == nil || *recompleted.FinalGrade != 82 {
		t.Errorf("FinalGrade = %v, want 82", recompleted.FinalGrade)
	}
}

func TestStatus(t *testing.T) {
	svc, _ := newTestService(t, unavailableGateway())
	ctx := context.Background()

	exam, _ := svc.StartExam(ctx, "Judy")
	q, _ := svc.CurrentQuestion(ctx, exam.ID)
	svc.SubmitAnswer(ctx, q.ID, "Answer.")

	progress, err := svc.Status(ctx, exam.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if progress.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", progress.TotalQuestions)
	}
	if progress.QuestionsCompleted != 1 {
		t.Errorf("QuestionsCompleted = %d, want 1", progress.QuestionsCompleted)
	}
	if progress.CurrentQuestion != 2 {
		t.Errorf("CurrentQuestion = %d, want 2", progress.CurrentQuestion)
	}
}
