// Package exam orchestrates the exam lifecycle: question generation,
// answer grading, and final grade calculation, persisting each step.
package exam

import (
	"context"
	"fmt"
	"log/slog"

	"examforge/internal/grading"
	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
	"examforge/internal/model"
	"examforge/internal/notify"
	"examforge/internal/store"
)

// ErrNoCurrentQuestion is returned when every question of an exam has
// already been answered.
var ErrNoCurrentQuestion = fmt.Errorf("exam: no unanswered question")

// ErrNotAnswered is returned when regrading a question that has no
// submitted answer.
var ErrNotAnswered = fmt.Errorf("exam: question has no answer to regrade")

// ErrNotCompleted is returned when disputing an exam that has not been
// completed yet.
var ErrNotCompleted = fmt.Errorf("exam: only a completed exam can be disputed")

// Service wires the grading pipeline to the store and the notifier.
type Service struct {
	store    *store.Store
	gateway  llm.Gateway
	prompts  *prompts.Set
	notifier notify.Notifier
	cfg      model.ExamConfig
	logger   *slog.Logger
}

func NewService(s *store.Store, gw llm.Gateway, set *prompts.Set, n notify.Notifier, cfg model.ExamConfig, logger *slog.Logger) *Service {
	return &Service{
		store:    s,
		gateway:  gw,
		prompts:  set,
		notifier: n,
		cfg:      cfg,
		logger:   logger,
	}
}

// StartExam creates a new exam for the student and generates its full
// question set. A fresh generator is used per exam so duplicate tracking
// never leaks across exams.
func (s *Service) StartExam(ctx context.Context, studentName string) (*model.Exam, error) {
	// Generate before touching the store: a generation error (invalid
	// question count) must not leave an orphan exam row behind.
	gen := grading.NewGenerator(s.gateway, s.prompts, grading.DefaultConfig())
	generated, err := gen.GenerateExam(ctx, s.cfg.Topic, s.cfg.NumQuestions, s.cfg.Difficulty, s.cfg.AdditionalDetails)
	if err != nil {
		return nil, fmt.Errorf("generate exam: %w", err)
	}

	examID, err := s.store.CreateExam(studentName, s.cfg.Topic, s.cfg.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	for _, q := range generated.Questions {
		_, err := s.store.InsertQuestion(model.Question{
			ExamID:         examID,
			QuestionNumber: q.QuestionNumber,
			Text:           q.QuestionText,
			Context:        q.Context,
			Rubric:         q.Rubric,
		})
		if err != nil {
			return nil, fmt.Errorf("store question %d: %w", q.QuestionNumber, err)
		}
	}

	s.logger.Info("exam started", "exam_id", examID, "student", studentName, "questions", len(generated.Questions))

	exam, err := s.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// CurrentQuestion returns the lowest-numbered unanswered question of an
// exam, or ErrNoCurrentQuestion when all have been answered.
func (s *Service) CurrentQuestion(ctx context.Context, examID int64) (*model.Question, error) {
	if _, err := s.store.GetExam(examID); err != nil {
		return nil, err
	}
	questions, err := s.store.QuestionsForExam(examID)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		if q.StudentAnswer == nil {
			return &q, nil
		}
	}
	return nil, ErrNoCurrentQuestion
}

// SubmitAnswer stores the student's answer, grades it, and persists the
// grade with its follow-up flag. Grading never fails outright: with the
// LLM unavailable the grader falls back to a basic evaluation.
func (s *Service) SubmitAnswer(ctx context.Context, questionID int64, answer string) (*model.Question, error) {
	q, err := s.store.GetQuestion(questionID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateAnswer(questionID, answer); err != nil {
		return nil, fmt.Errorf("store answer: %w", err)
	}

	grader := grading.NewGrader(s.gateway, s.prompts)
	result := grader.GradeAnswer(ctx, q.Text, q.Context, q.Rubric, answer)

	needsFollowup := grading.ShouldAskFollowup(result.Grade)
	if err := s.store.UpdateGrade(questionID, result.Grade, result.Feedback, needsFollowup); err != nil {
		return nil, fmt.Errorf("store grade: %w", err)
	}

	s.logger.Info("answer graded",
		"exam_id", q.ExamID, "question", q.QuestionNumber,
		"grade", result.Grade, "needs_followup", needsFollowup)

	graded, err := s.store.GetQuestion(questionID)
	if err != nil {
		return nil, err
	}
	return &graded, nil
}

// RegradeAnswer regrades an already-answered question and emits a
// grade-changed notification when the grade moves.
func (s *Service) RegradeAnswer(ctx context.Context, questionID int64) (*model.Question, error) {
	q, err := s.store.GetQuestion(questionID)
	if err != nil {
		return nil, err
	}
	if q.StudentAnswer == nil {
		return nil, ErrNotAnswered
	}

	grader := grading.NewGrader(s.gateway, s.prompts)
	result := grader.GradeAnswer(ctx, q.Text, q.Context, q.Rubric, *q.StudentAnswer)

	needsFollowup := grading.ShouldAskFollowup(result.Grade)
	if err := s.store.UpdateGrade(questionID, result.Grade, result.Feedback, needsFollowup); err != nil {
		return nil, fmt.Errorf("store grade: %w", err)
	}

	if q.Grade != nil && *q.Grade != result.Grade {
		if err := s.notifier.GradeChanged(q.ExamID, q.QuestionNumber, *q.Grade, result.Grade); err != nil {
			s.logger.Error("grade change notification failed", "exam_id", q.ExamID, "error", err)
		}
	}

	graded, err := s.store.GetQuestion(questionID)
	if err != nil {
		return nil, err
	}
	return &graded, nil
}

// DisputeExam marks a completed exam as disputed so its questions can be
// regraded. Completing the exam again recalculates the final grade and
// returns it to the completed state.
func (s *Service) DisputeExam(ctx context.Context, examID int64) (*model.Exam, error) {
	e, err := s.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	if e.Status != model.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if err := s.store.UpdateExamStatus(examID, model.StatusDisputed); err != nil {
		return nil, fmt.Errorf("mark exam disputed: %w", err)
	}

	s.logger.Info("exam disputed", "exam_id", examID, "student", e.StudentName)

	disputed, err := s.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	return &disputed, nil
}

// CompleteExam calculates the final grade from the per-question grades,
// marks the exam completed, and notifies.
func (s *Service) CompleteExam(ctx context.Context, examID int64) (*model.Exam, error) {
	if _, err := s.store.GetExam(examID); err != nil {
		return nil, err
	}
	questions, err := s.store.QuestionsForExam(examID)
	if err != nil {
		return nil, err
	}

	var scores []float64
	var feedback []string
	for _, q := range questions {
		if q.Grade != nil {
			scores = append(scores, *q.Grade)
		}
		if q.Feedback != "" {
			feedback = append(feedback, q.Feedback)
		}
	}

	finalizer := grading.NewFinalizer(s.gateway, s.prompts)
	final := finalizer.CalculateFinalGrade(ctx, scores, feedback)

	if err := s.store.CompleteExam(examID, final.FinalGrade, final.Explanation); err != nil {
		return nil, fmt.Errorf("complete exam: %w", err)
	}
	if err := s.notifier.ExamCompleted(examID, final.FinalGrade); err != nil {
		s.logger.Error("completion notification failed", "exam_id", examID, "error", err)
	}

	s.logger.Info("exam completed", "exam_id", examID, "final_grade", final.FinalGrade,
		"category", grading.GradeCategory(final.FinalGrade))

	exam, err := s.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// Status reports exam progress: answered count, total, and the current
// question number when the exam is still in progress.
func (s *Service) Status(ctx context.Context, examID int64) (*model.ExamProgress, error) {
	exam, err := s.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.QuestionsForExam(examID)
	if err != nil {
		return nil, err
	}

	progress := &model.ExamProgress{
		ExamID:         examID,
		Status:         exam.Status,
		TotalQuestions: len(questions),
	}
	for _, q := range questions {
		if q.StudentAnswer != nil {
			progress.QuestionsCompleted++
		} else if progress.CurrentQuestion == 0 {
			progress.CurrentQuestion = q.QuestionNumber
		}
	}
	return progress, nil
}
