package model

import "time"

// ExamExport is the top-level JSON structure for exam result export.
type ExamExport struct {
	Subject      string       `json:"subject"`
	Date         string       `json:"date"`
	NumQuestions int          `json:"num_questions"`
	Results      []ExamResult `json:"results"`
}

// ExamResult holds one student's exam data for export.
type ExamResult struct {
	StudentName      string           `json:"student_name"`
	Status           ExamStatus       `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	Questions        []QuestionResult `json:"questions"`
	FinalGrade       *float64         `json:"final_grade,omitempty"`
	FinalExplanation string           `json:"final_explanation,omitempty"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	QuestionNumber int      `json:"question_number"`
	Text           string   `json:"text"`
	Context        string   `json:"context"`
	Rubric         string   `json:"rubric"`
	StudentAnswer  *string  `json:"student_answer,omitempty"`
	Grade          *float64 `json:"grade,omitempty"`
	Feedback       string   `json:"feedback,omitempty"`
}
