// Package notify records notification events when exams complete or
// grades change, so students can be informed of updates to their results.
package notify

import (
	"fmt"
	"log/slog"

	"examforge/internal/model"
	"examforge/internal/store"
)

// Notifier publishes exam lifecycle events.
type Notifier interface {
	ExamCompleted(examID int64, finalGrade float64) error
	GradeChanged(examID int64, questionNumber int, oldGrade, newGrade float64) error
}

// StoreNotifier persists notifications to the database and logs them.
type StoreNotifier struct {
	store  *store.Store
	logger *slog.Logger
}

func New(s *store.Store, logger *slog.Logger) *StoreNotifier {
	return &StoreNotifier{store: s, logger: logger}
}

func (n *StoreNotifier) ExamCompleted(examID int64, finalGrade float64) error {
	msg := fmt.Sprintf("Exam completed with final grade %.1f", finalGrade)
	if _, err := n.store.AddNotification(examID, model.NotifyExamCompleted, msg); err != nil {
		return fmt.Errorf("record completion notification: %w", err)
	}
	n.logger.Info("exam completed", "exam_id", examID, "final_grade", finalGrade)
	return nil
}

func (n *StoreNotifier) GradeChanged(examID int64, questionNumber int, oldGrade, newGrade float64) error {
	msg := fmt.Sprintf("Grade for question %d changed from %.1f to %.1f", questionNumber, oldGrade, newGrade)
	if _, err := n.store.AddNotification(examID, model.NotifyGradeChanged, msg); err != nil {
		return fmt.Errorf("record grade change notification: %w", err)
	}
	n.logger.Info("grade changed", "exam_id", examID, "question", questionNumber, "old", oldGrade, "new", newGrade)
	return nil
}
