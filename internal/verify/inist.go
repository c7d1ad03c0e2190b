package verify

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/similarity"
	"github.com/matsen/bibcheck/internal/textnorm"
)

// InistStatus is the verdict of matching a candidate against a raw
// reference string.
type InistStatus string

const (
	InistFound        InistStatus = "found"
	InistToBeVerified InistStatus = "to_be_verified"
	InistNotFound     InistStatus = "not_found"
)

// Criteria names reported in InistMatch.Matched.
const (
	CriterionTitle   = "title"
	CriterionAuthor  = "author"
	CriterionYear    = "year"
	CriterionJournal = "journal"
)

// InistMatch scores a candidate against the unparsed reference it was found
// for.
type InistMatch struct {
	Points     int         `json:"points"`
	TitleRatio float64     `json:"titleRatio"`
	Confidence int         `json:"confidence"`
	Status     InistStatus `json:"status"`
	Matched    []string    `json:"matched"`
}

// MatchRaw checks four independent criteria of c against raw, one point
// each: title partial ratio above 0.8, first-author surname present in the
// normalized reference, year present literally, and journal partial ratio
// above 0.8. A very similar title that fails the other checks is flagged
// to_be_verified as a likely fabricated reference.
func MatchRaw(raw string, c reference.MatchCandidate) InistMatch {
	m := InistMatch{Status: InistNotFound, Matched: []string{}}

	m.TitleRatio = similarity.PartialRatio(c.Title, raw)
	if m.TitleRatio > 0.8 {
		m.Points++
		m.Matched = append(m.Matched, CriterionTitle)
	}

	if surname := textnorm.Normalize(textnorm.ExtractLastName(c.Author)); surname != "" {
		if containsWord(textnorm.Normalize(raw), surname) {
			m.Points++
			m.Matched = append(m.Matched, CriterionAuthor)
		}
	}

	if c.Year > 0 && strings.Contains(raw, strconv.Itoa(c.Year)) {
		m.Points++
		m.Matched = append(m.Matched, CriterionYear)
	}

	if journal := firstNonBlank(c.Journal, c.Publisher); journal != "" {
		if similarity.PartialRatio(journal, raw) > 0.8 {
			m.Points++
			m.Matched = append(m.Matched, CriterionJournal)
		}
	}

	switch {
	case m.Points >= 3:
		m.Confidence, m.Status = 95, InistFound
	case m.Points == 2 && m.TitleRatio > 0.98:
		m.Confidence, m.Status = 85, InistFound
	case m.Points == 2 && m.TitleRatio > 0.6:
		m.Confidence, m.Status = 75, InistFound
	case m.TitleRatio > 0.9 && m.Points < 2:
		m.Confidence, m.Status = 40, InistToBeVerified
	}
	return m
}

// containsWord reports whether the word sequence needle occurs in haystack
// on word boundaries. Both sides must already be normalized.
func containsWord(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RawResult is the outcome of verifying an unparsed reference string.
type RawResult struct {
	Raw       string                    `json:"raw"`
	Candidate *reference.MatchCandidate `json:"candidate"`
	Match     InistMatch                `json:"match"`
}

// VerifyRaw queries the cascade with a raw reference string and keeps the
// candidate that best satisfies MatchRaw.
func (v *Verifier) VerifyRaw(ctx context.Context, raw string) RawResult {
	result := RawResult{Raw: raw, Match: InistMatch{Status: InistNotFound, Matched: []string{}}}
	query := strings.TrimSpace(raw)
	if query == "" {
		return result
	}
	log := v.logger.With(zap.String("raw", query))
	for _, step := range v.steps {
		if result.Candidate != nil && result.Match.Confidence >= step.Threshold {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		c := v.lookup(ctx, log, step, query, "")
		if c == nil {
			continue
		}
		m := MatchRaw(raw, *c)
		if result.Candidate == nil || m.Confidence > result.Match.Confidence {
			c.Confidence = m.Confidence
			result.Candidate, result.Match = c, m
		}
	}
	return result
}
