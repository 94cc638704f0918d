package model

import "time"

// ExamStatus represents the lifecycle status of an exam.
type ExamStatus string

const (
	StatusInProgress ExamStatus = "in_progress"
	StatusCompleted  ExamStatus = "completed"
	StatusDisputed   ExamStatus = "disputed"
)

// Exam represents one student's exam.
type Exam struct {
	ID               int64      `json:"id"`
	StudentName      string     `json:"student_name"`
	Topic            string     `json:"topic"`
	Difficulty       string     `json:"difficulty"`
	Status           ExamStatus `json:"status"`
	FinalGrade       *float64   `json:"final_grade,omitempty"`
	FinalExplanation string     `json:"final_explanation,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Question represents a generated exam question and, once submitted,
// the student's answer and its grade.
type Question struct {
	ID             int64    `json:"id"`
	ExamID         int64    `json:"exam_id"`
	QuestionNumber int      `json:"question_number"`
	Text           string   `json:"text"`
	Context        string   `json:"context"`
	Rubric         string   `json:"rubric"`
	StudentAnswer  *string  `json:"student_answer,omitempty"`
	Grade          *float64 `json:"grade,omitempty"`
	Feedback       string   `json:"feedback,omitempty"`
	NeedsFollowup  bool     `json:"needs_followup"`
}

// NotificationKind classifies a notification event.
type NotificationKind string

const (
	NotifyExamCompleted NotificationKind = "exam_completed"
	NotifyGradeChanged  NotificationKind = "grade_changed"
)

// Notification records a grade-change or completion event for an exam.
type Notification struct {
	ID        int64            `json:"id"`
	ExamID    int64            `json:"exam_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// ExamProgress summarizes how far a student has progressed through an exam.
type ExamProgress struct {
	ExamID             int64      `json:"exam_id"`
	Status             ExamStatus `json:"status"`
	QuestionsCompleted int        `json:"questions_completed"`
	TotalQuestions     int        `json:"total_questions"`
	CurrentQuestion    int        `json:"current_question,omitempty"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	NumQuestions      int
	Topic             string
	Difficulty        string
	AdditionalDetails string
}
