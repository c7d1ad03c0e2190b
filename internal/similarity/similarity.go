// Package similarity scores how alike two bibliographic strings are.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/matsen/bibcheck/internal/textnorm"
)

// Ratio returns a case-insensitive edit-distance ratio in [0, 100].
// Identical trimmed strings score 100 and an empty input scores 0.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	s1 := strings.ToLower(strings.TrimSpace(a))
	s2 := strings.ToLower(strings.TrimSpace(b))
	if s1 == s2 {
		return 100
	}

	maxLen := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}

	dist := levenshtein.ComputeDistance(s1, s2)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

// PartialRatio compares normalized strings and returns 1 when the shorter is
// contained in the longer, otherwise the share of the shorter string's words
// that occur in the longer one. Returns 0 when either side normalizes to
// nothing.
func PartialRatio(a, b string) float64 {
	s1 := textnorm.Normalize(a)
	s2 := textnorm.Normalize(b)
	if s1 == "" || s2 == "" {
		return 0
	}

	shorter, longer := s1, s2
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		return 1
	}

	vocab := make(map[string]struct{})
	for _, w := range strings.Fields(longer) {
		vocab[w] = struct{}{}
	}

	words := strings.Fields(shorter)
	matched := 0
	for _, w := range words {
		if _, ok := vocab[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}
