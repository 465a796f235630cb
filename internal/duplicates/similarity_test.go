package duplicates

import "testing"

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  int
		max  int
	}{
		{"The Matrix", "The Matrix", 100, 100},
		{"The Matrix", "Matrix The", 100, 100},
		{"The Matrix Reloaded", "The Matrix Reloadd", 90, 99},
		// Run-together spelling of the same words must clear the default
		// fuzzy threshold.
		{"Red Dwarf", "Redwarf", 85, 99},
		{"Red Dwarf", "RedDwarf", 100, 100},
		{"The Matrix", "Blade Runner", 0, 60},
		{"", "", 100, 100},
		{"The Matrix", "", 0, 0},
	}
	for _, tc := range cases {
		got := Similarity(tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Errorf("Similarity(%q, %q) = %d, want in [%d,%d]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestSimilarityDeterministic(t *testing.T) {
	first := Similarity("Some Long Movie Title", "Some Long Movei Title")
	for i := 0; i < 5; i++ {
		if Similarity("Some Long Movie Title", "Some Long Movei Title") != first {
			t.Fatal("Similarity not deterministic")
		}
	}
	if Similarity("abc", "abd") != Similarity("abd", "abc") {
		t.Error("Similarity not symmetric")
	}
	if Similarity("Red Dwarf", "Redwarf") != Similarity("Redwarf", "Red Dwarf") {
		t.Error("joined-form comparison not symmetric")
	}
}

func TestSimilarityIgnoresPunctuationAndCase(t *testing.T) {
	if got := Similarity("the.matrix!", "The Matrix"); got != 100 {
		t.Errorf("Similarity = %d, want 100", got)
	}
}
