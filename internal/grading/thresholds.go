package grading

// Grade thresholds for quality assessment.
const (
	FollowupThreshold   = 70.0
	ExcellentThreshold  = 90.0
	GoodThreshold       = 80.0
	AcceptableThreshold = 70.0
)

// Category describes the quality band of a numeric grade.
type Category string

const (
	CategoryExcellent        Category = "Excellent"
	CategoryGood             Category = "Good"
	CategoryAcceptable       Category = "Acceptable"
	CategoryNeedsImprovement Category = "Needs Improvement"
)

// ShouldAskFollowup reports whether a grade warrants a follow-up question.
func ShouldAskFollowup(grade float64) bool {
	return grade < FollowupThreshold
}

// GradeCategory classifies a numeric grade into a quality band.
func GradeCategory(grade float64) Category {
	switch {
	case grade >= ExcellentThreshold:
		return CategoryExcellent
	case grade >= GoodThreshold:
		return CategoryGood
	case grade >= AcceptableThreshold:
		return CategoryAcceptable
	default:
		return CategoryNeedsImprovement
	}
}
