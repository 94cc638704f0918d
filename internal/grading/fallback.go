package grading

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"examforge/internal/contract"
)

// fallbackBank holds canned questions used when the LLM is unavailable or
// keeps producing unusable output. Order is fixed; the generator hands them
// out in sequence, skipping any whose text it has already produced.
var fallbackBank = []contract.GeneratedQuestion{
	{
		QuestionText: "Question 1: Explain the fundamental principles of data structures. Discuss the differences between arrays and linked lists, and when you would use each.",
		Context:      "Data structures are fundamental to computer science. Arrays store elements in contiguous memory, while linked lists use nodes with pointers. Understanding when to use each is crucial for efficient programming.",
		Rubric:       "Grading criteria: (1) Understanding of arrays - 25 points, (2) Understanding of linked lists - 25 points, (3) Comparison and differences - 25 points, (4) Use case examples - 25 points. Total: 100 points.",
	},
	{
		QuestionText: "Question 2: Describe the concept of algorithm time complexity (Big O notation). Provide examples of O(1), O(n), and O(n²) algorithms and explain why understanding complexity matters.",
		Context:      "Algorithm complexity analysis helps developers understand how algorithms scale. Big O notation describes the worst-case time complexity. Efficient algorithms can make the difference between a usable and unusable program.",
		Rubric:       "Grading criteria: (1) Explanation of Big O notation - 30 points, (2) O(1) example and explanation - 20 points, (3) O(n) example and explanation - 20 points, (4) O(n²) example and explanation - 20 points, (5) Importance discussion - 10 points. Total: 100 points.",
	},
	{
		QuestionText: "Question 3: Explain the concept of recursion in programming. Discuss its advantages and disadvantages, and provide an example of a problem that is naturally solved using recursion.",
		Context:      "Recursion is a programming technique where a function calls itself to solve a problem. It's commonly used in tree traversal, divide-and-conquer algorithms, and problems with recursive structure like factorial or Fibonacci sequences.",
		Rubric:       "Grading criteria: (1) Explanation of recursion concept - 25 points, (2) Advantages discussion - 20 points, (3) Disadvantages discussion - 20 points, (4) Appropriate example with explanation - 30 points, (5) Clarity and organization - 5 points. Total: 100 points.",
	},
}

// placeholderQuestion synthesizes a generic question for when the canned
// bank is exhausted.
func placeholderQuestion(questionNumber int) contract.GeneratedQuestion {
	return contract.GeneratedQuestion{
		QuestionText: fmt.Sprintf("Question %d: Discuss a core concept from the course material, explain how it works, and describe a practical situation where it matters.", questionNumber),
		Context:      "This is a general question covering the course material. Answer using concepts studied during the course.",
		Rubric:       "Grading criteria: (1) Understanding of the concept - 40 points, (2) Explanation of how it works - 30 points, (3) Practical example - 30 points. Total: 100 points.",
	}
}

// Fallback answer-length tiers for when AI grading is unavailable.
// Longer answers receive higher heuristic grades.
const (
	longAnswerChars   = 500
	mediumAnswerChars = 200
	shortAnswerChars  = 50

	longAnswerGrade    = 85.0
	mediumAnswerGrade  = 75.0
	shortAnswerGrade   = 65.0
	minimalAnswerGrade = 55.0
)

// fallbackGrade grades an answer by length alone. Length is measured in
// characters, not bytes, so non-ASCII answers tier the same as ASCII ones.
func fallbackGrade(studentAnswer string) *contract.GradingResult {
	length := utf8.RuneCountInString(strings.TrimSpace(studentAnswer))

	var grade float64
	var feedback string
	switch {
	case length > longAnswerChars:
		grade = longAnswerGrade
		feedback = "Your answer is comprehensive and well-developed. You demonstrated good understanding of the topic."
	case length > mediumAnswerChars:
		grade = mediumAnswerGrade
		feedback = "Your answer addresses the question adequately. Consider adding more detail and examples to strengthen your response."
	case length > shortAnswerChars:
		grade = shortAnswerGrade
		feedback = "Your answer is brief. Please provide more detailed explanations and examples to fully address the question."
	default:
		grade = minimalAnswerGrade
		feedback = "Your answer is too brief. Please provide a more complete response with explanations and examples."
	}

	return &contract.GradingResult{
		Grade:      grade,
		Feedback:   feedback,
		Strengths:  []string{"Answer was submitted", "Demonstrates engagement with the material"},
		Weaknesses: []string{"AI grading unavailable - using basic evaluation"},
	}
}

// fallbackFinalGrade averages the question scores.
func fallbackFinalGrade(questionScores []float64) *contract.FinalGrade {
	var sum float64
	for _, s := range questionScores {
		sum += s
	}
	avg := 0.0
	if len(questionScores) > 0 {
		avg = sum / float64(len(questionScores))
	}
	return &contract.FinalGrade{
		FinalGrade:     avg,
		Explanation:    fmt.Sprintf("Final grade calculated as average of %d questions.", len(questionScores)),
		QuestionScores: questionScores,
	}
}
