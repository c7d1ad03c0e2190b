// Package duplicate finds pairs of entries in a reference list that likely
// describe the same work.
package duplicate

import (
	"math"
	"strings"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/similarity"
	"github.com/matsen/bibcheck/internal/textnorm"
)

// Recommendation tiers.
const (
	Certain    = "certain duplicate"
	VeryLikely = "very likely duplicate"
	Possible   = "possible duplicate"
)

const (
	titleWeight  = 0.6
	authorWeight = 0.3
	yearBonus    = 10
	doiScore     = 100

	veryLikelyScore = 90
)

// Threshold is the composite score a pair must exceed to be reported.
const Threshold = 75

// Pair is one reported duplicate. Indices are positions in the input list,
// lower index first.
type Pair struct {
	Indices          [2]int `json:"indices"`
	Score            int    `json:"score"`
	TitleSimilarity  int    `json:"titleSimilarity"`
	AuthorSimilarity int    `json:"authorSimilarity"`
	YearMatch        bool   `json:"yearMatch"`
	DOIMatch         bool   `json:"doiMatch"`
	Recommendation   string `json:"recommendation"`
}

// Detect compares every unordered pair of entries and returns those whose
// composite score exceeds Threshold, ordered by (i, j).
func Detect(entries []reference.Entry) []Pair {
	keys := make([]key, len(entries))
	for i, e := range entries {
		keys[i] = keyOf(e)
	}

	pairs := []Pair{}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if p, ok := compare(keys[i], keys[j]); ok {
				p.Indices = [2]int{i, j}
				pairs = append(pairs, p)
			}
		}
	}
	return pairs
}

// key holds the fields of an entry that take part in the comparison.
type key struct {
	title  string
	author string
	year   int
	doi    string
}

func keyOf(e reference.Entry) key {
	k := key{
		title:  textnorm.CleanTitle(e.Title, ""),
		author: e.AuthorString(),
		year:   e.Year(),
	}
	if doi, ok := textnorm.CleanDOI(e.DOI); ok {
		k.doi = strings.ToLower(doi)
	}
	return k
}

func compare(a, b key) (Pair, bool) {
	p := Pair{
		TitleSimilarity:  similarity.Ratio(a.title, b.title),
		AuthorSimilarity: similarity.Ratio(a.author, b.author),
		YearMatch:        a.year != 0 && a.year == b.year,
		DOIMatch:         a.doi != "" && a.doi == b.doi,
	}

	score := titleWeight*float64(p.TitleSimilarity) + authorWeight*float64(p.AuthorSimilarity)
	if p.YearMatch {
		score += yearBonus
	}
	if p.DOIMatch {
		score = doiScore
	}
	if score <= Threshold {
		return Pair{}, false
	}

	p.Score = int(math.Round(score))
	switch {
	case p.DOIMatch:
		p.Recommendation = Certain
	case score > veryLikelyScore:
		p.Recommendation = VeryLikely
	default:
		p.Recommendation = Possible
	}
	return p, true
}
