// Package contract defines the structured contracts LLM responses must
// satisfy, and validates decoded JSON against them. Validation failure is an
// expected outcome: decode functions return (nil, false) and never panic or
// return errors past this boundary.
package contract

// GeneratedQuestion is a single generated exam question.
type GeneratedQuestion struct {
	QuestionText string `json:"question_text"`
	Context      string `json:"context"`
	Rubric       string `json:"rubric"`
}

// NumberedQuestion is a GeneratedQuestion with its position in the exam, so
// ordering is explicit and verifiable.
type NumberedQuestion struct {
	GeneratedQuestion
	QuestionNumber int `json:"question_number"`
}

// GeneratedExam is a full generated exam. Question numbers are exactly 1..N
// with no repeats.
type GeneratedExam struct {
	Questions []NumberedQuestion `json:"questions"`
}

// GradingResult is the grade for one answer submission.
type GradingResult struct {
	Grade      float64  `json:"grade"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// FinalGrade aggregates per-question grades into one exam grade.
type FinalGrade struct {
	FinalGrade     float64   `json:"final_grade"`
	Explanation    string    `json:"explanation"`
	QuestionScores []float64 `json:"question_scores"`
}
