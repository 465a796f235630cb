package duplicates

import (
	"math"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"mediavault/internal/parse"
)

// Similarity computes a token-sort ratio in [0,100] over lowercased,
// punctuation-stripped titles. Tokens are sorted before comparison so word
// order does not matter, and the pair is compared a second time with
// separators removed so split and run-together spellings of the same title
// still match. Total and deterministic for any input pair.
func Similarity(a, b string) int {
	keyA := parse.CanonicalKey(a)
	keyB := parse.CanonicalKey(b)
	sortedA := tokenSortKey(keyA)
	sortedB := tokenSortKey(keyB)
	if sortedA == sortedB {
		return 100
	}
	if sortedA == "" || sortedB == "" {
		return 0
	}

	sorted := ratio(sortedA, sortedB)
	joined := ratio(stripSpaces(keyA), stripSpaces(keyB))
	if joined > sorted {
		return joined
	}
	return sorted
}

func ratio(a, b string) int {
	runesA := []rune(a)
	runesB := []rune(b)
	total := len(runesA) + len(runesB)
	if total == 0 {
		return 100
	}
	distance := levenshtein.DistanceForStrings(runesA, runesB, levenshtein.DefaultOptions)
	return int(math.Round(float64(total-distance) / float64(total) * 100))
}

func tokenSort(title string) string {
	return tokenSortKey(parse.CanonicalKey(title))
}

func tokenSortKey(key string) string {
	tokens := strings.Fields(key)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func stripSpaces(key string) string {
	return strings.ReplaceAll(key, " ", "")
}
