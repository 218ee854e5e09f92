package usecase

import (
	"math"
	"strings"
)

// NameSimilarity computes word-set overlap between two names as a rounded
// percentage: |intersection| / |union| of lowercase word sets. Word order
// does not matter; an empty name scores zero against anything.
func NameSimilarity(a, b string) int {
	wordsA := nameWords(a)
	wordsB := nameWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	union := make(map[string]struct{}, len(wordsA)+len(wordsB))
	for word := range wordsA {
		union[word] = struct{}{}
	}
	for word := range wordsB {
		union[word] = struct{}{}
	}

	overlap := 0
	for word := range wordsA {
		if _, ok := wordsB[word]; ok {
			overlap++
		}
	}
	return int(math.Round(float64(overlap) / float64(len(union)) * 100))
}

func nameWords(name string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(strings.TrimSpace(name))) {
		words[word] = struct{}{}
	}
	return words
}
