package grading

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello world"},
		{"  lots\t of \n whitespace  ", "lots of whitespace"},
		{"MiXeD CaSe", "mixed case"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"What is a goroutine", "How do goroutines work"},
		{"Explain TCP handshakes", "Describe UDP datagrams"},
		{"", "non-empty text here"},
		{"one two three", "three two one"},
	}
	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"identical text entirely", "identical text entirely"},
		{"alpha beta gamma", "delta epsilon zeta"},
		{"", ""},
		{"a", "a b c d e f g h i j k"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestSimilarityIdentity(t *testing.T) {
	texts := []string{
		"Explain the role of indexes in relational databases",
		"short one",
	}
	for _, s := range texts {
		if got := Similarity(s, s); got != 1 {
			t.Errorf("Similarity(%q, itself) = %v, want 1", s, got)
		}
	}
}

func TestSimilarityParaphraseBoost(t *testing.T) {
	// Same key terms, different question phrasing. Raw word overlap is low
	// but the key-term boost should flag these as near-duplicates.
	a := "What is polymorphism in object oriented programming"
	b := "Describe polymorphism in object oriented programming"
	if got := Similarity(a, b); got < DuplicateThreshold {
		t.Errorf("Similarity(paraphrases) = %v, want >= %v", got, DuplicateThreshold)
	}
}

func TestSimilarityShortTextFloor(t *testing.T) {
	// Key-term similarity is 3/5 = 0.6: above the short-text floor trigger
	// (0.5) but not above the boost trigger (0.6). Both texts are short, so
	// the score is floored at 0.75.
	a := "Explain stack heap memory"
	b := "Compare stack heap memory allocation fragmentation"
	if got := Similarity(a, b); got != shortTextFloor {
		t.Errorf("Similarity(short shared-key texts) = %v, want %v", got, shortTextFloor)
	}
}

func TestSimilarityUnrelated(t *testing.T) {
	a := "Explain the TCP three-way handshake and sequence numbers"
	b := "Compare supervised and unsupervised machine learning approaches"
	if got := Similarity(a, b); got >= DuplicateThreshold {
		t.Errorf("Similarity(unrelated) = %v, should be below %v", got, DuplicateThreshold)
	}
}
