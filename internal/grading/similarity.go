package grading

import (
	"math"
	"strings"
)

// Similarity thresholds. The values are empirically chosen; treat them as
// tunable constants, not truths.
const (
	// DuplicateThreshold is the similarity score at or above which two
	// questions are treated as near-duplicates.
	DuplicateThreshold = 0.85

	// keyTermBoost is the key-term similarity above which the boosted
	// scoring path applies (paraphrases of the same concept).
	keyTermBoost = 0.6

	// shortKeyTermFloor is the key-term similarity above which two short
	// questions get a floored score of shortTextFloor.
	shortKeyTermFloor = 0.5
	shortTextFloor    = 0.75

	// shortTextWords is the word count at or below which a question counts
	// as short.
	shortTextWords = 6
)

// stopWords are excluded when extracting key terms, along with any word of
// three characters or fewer.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "was": {}, "were": {}, "been": {},
	"being": {}, "not": {}, "but": {}, "for": {}, "with": {}, "from": {},
	"into": {}, "through": {}, "about": {}, "between": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "its": {}, "his": {}, "her": {},
	"their": {}, "your": {}, "they": {}, "you": {}, "what": {}, "which": {},
	"when": {}, "where": {}, "who": {}, "whom": {}, "whose": {}, "why": {},
	"how": {}, "does": {}, "did": {}, "can": {}, "could": {}, "would": {},
	"should": {}, "will": {}, "shall": {}, "may": {}, "might": {},
	"must": {}, "have": {}, "had": {}, "has": {}, "work": {}, "works": {},
	"explain": {}, "describe": {}, "discuss": {}, "define": {},
	"compare": {}, "contrast": {}, "provide": {}, "give": {},
}

// NormalizeText lowercases text and collapses all whitespace runs into
// single spaces. Duplicate tracking and similarity both key off this form.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity scores how alike two question texts are, in [0,1]. It combines
// the Jaccard index of their word sets with an overlap ratio against the
// smaller set, boosted when the texts share key terms: paraphrased questions
// about the same concept ("What is X" vs "How does X work") should score
// high even with low raw word overlap.
func Similarity(a, b string) float64 {
	wordsA := tokenize(a)
	wordsB := tokenize(b)

	setA := toSet(wordsA)
	setB := toSet(wordsB)

	inter := intersectionSize(setA, setB)
	union := len(setA) + len(setB) - inter

	var jaccard float64
	if union > 0 {
		jaccard = float64(inter) / float64(union)
	}

	var overlap float64
	if smaller := min(len(setA), len(setB)); smaller > 0 {
		overlap = float64(inter) / float64(smaller)
	}

	keyA := keyTerms(setA)
	keyB := keyTerms(setB)
	var keyJaccard float64
	if len(keyA) > 0 && len(keyB) > 0 {
		keyInter := intersectionSize(keyA, keyB)
		keyUnion := len(keyA) + len(keyB) - keyInter
		keyJaccard = float64(keyInter) / float64(keyUnion)
	}

	score := math.Max(jaccard, 0.8*overlap)
	if keyJaccard > keyTermBoost {
		score = math.Max(score, 0.9*keyJaccard)
	}

	// Short questions sharing key terms are almost certainly duplicates.
	if len(wordsA) <= shortTextWords && len(wordsB) <= shortTextWords && keyJaccard > shortKeyTermFloor {
		score = math.Max(score, shortTextFloor)
	}

	return math.Min(1, math.Max(0, score))
}

// tokenize splits normalized text into words, trimming surrounding
// punctuation so "programming?" and "programming" compare equal.
func tokenize(s string) []string {
	fields := strings.Fields(NormalizeText(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(f, ".,;:!?\"'`()[]{}")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func keyTerms(set map[string]struct{}) map[string]struct{} {
	key := make(map[string]struct{}, len(set))
	for w := range set {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		key[w] = struct{}{}
	}
	return key
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
