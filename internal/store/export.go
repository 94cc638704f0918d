package store

import (
	"time"

	"examforge/internal/model"
)

// ExportAllExams collects every exam with its questions into an export
// structure suitable for JSON serialization.
func (s *Store) ExportAllExams(subject string) (*model.ExamExport, error) {
	exams, err := s.ListExams()
	if err != nil {
		return nil, err
	}

	export := &model.ExamExport{
		Subject: subject,
		Date:    time.Now().Format("2006-01-02"),
	}

	for _, e := range exams {
		questions, err := s.QuestionsForExam(e.ID)
		if err != nil {
			return nil, err
		}
		result := model.ExamResult{
			StudentName:      e.StudentName,
			Status:           e.Status,
			CreatedAt:        e.CreatedAt,
			CompletedAt:      e.CompletedAt,
			FinalGrade:       e.FinalGrade,
			FinalExplanation: e.FinalExplanation,
		}
		for _, q := range questions {
			result.Questions = append(result.Questions, model.QuestionResult{
				QuestionNumber: q.QuestionNumber,
				Text:           q.Text,
				Context:        q.Context,
				Rubric:         q.Rubric,
				StudentAnswer:  q.StudentAnswer,
				Grade:          q.Grade,
				Feedback:       q.Feedback,
			})
		}
		if len(result.Questions) > export.NumQuestions {
			export.NumQuestions = len(result.Questions)
		}
		export.Results = append(export.Results, result)
	}

	return export, nil
}
