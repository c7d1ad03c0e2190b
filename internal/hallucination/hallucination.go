// Package hallucination scores how likely a reference is to be fabricated.
//
// The score is a sum of independent rule points over the entry and its
// verification result, capped at 100. No network access is involved.
package hallucination

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/bibcheck/internal/reference"
)

// Level buckets a risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Rule points.
const (
	PointsNotFound        = 50
	PointsLowConfidence   = 30
	PointsGenericTitle    = 20
	PointsFutureYear      = 40
	PointsAnachronism     = 30
	PointsInitialsOnly    = 10
	PointsMissingAuthor   = 15
	PointsSuspiciousVenue = 20

	lowConfidence  = 40
	anachronismEnd = 1900
	maxScore       = 100
	highThreshold  = 70
	mediumMinimum  = 40
)

type titlePattern struct {
	re   *regexp.Regexp
	desc string
}

// genericTitles are evaluated in order; only the first match scores.
var genericTitles = []titlePattern{
	{regexp.MustCompile(`(?i)^(A|An|The)\s+Study\s+of`), `generic title "A Study of..."`},
	{regexp.MustCompile(`(?i)^On\s+the\s+`), `generic title "On the..."`},
	{regexp.MustCompile(`(?i)\bA\s+(Comprehensive|Systematic)\s+Review$`), "generic review subtitle"},
	{regexp.MustCompile(`(?i)^Introduction\s+to`), `generic title "Introduction to..."`},
}

var modernTopics = []string{"digital", "internet", "software", "online", "computer"}

var suspiciousVenues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)international\s+journal\s+of\s+advanced\s+research`),
	regexp.MustCompile(`(?i)journal\s+of\s+universal`),
	regexp.MustCompile(`(?i)global\s+journal`),
}

var initialsOnly = regexp.MustCompile(`^\p{Lu}\.\s*\p{Lu}\.$`)

// Assessment is the outcome of scoring one entry.
type Assessment struct {
	RiskScore      int      `json:"riskScore"`
	Level          Level    `json:"level"`
	Warnings       []string `json:"warnings"`
	Recommendation string   `json:"recommendation"`
}

// Assess scores entry given its verification result, which may be nil when
// the entry was never verified. now fixes the current year for the future
// date rule.
func Assess(entry reference.Entry, result *reference.VerificationResult, now time.Time) Assessment {
	score := 0
	warnings := []string{}
	add := func(points int, warning string) {
		score += points
		warnings = append(warnings, warning)
	}

	var verified *reference.MatchCandidate
	if result != nil {
		verified = result.Verified
	}

	// A zero-valued result was never verified and counts as not found.
	if result == nil || result.Status == reference.StatusNotFound || result.Status == "" {
		add(PointsNotFound, "not found in any catalog")
	}
	if verified != nil && verified.Confidence < lowConfidence {
		add(PointsLowConfidence, fmt.Sprintf("very low match confidence: %d%%", verified.Confidence))
	}

	for _, p := range genericTitles {
		if p.re.MatchString(strings.TrimSpace(entry.Title)) {
			add(PointsGenericTitle, p.desc)
			break
		}
	}

	year := entry.Year()
	if year == 0 && verified != nil {
		year = verified.Year
	}
	if year != 0 {
		if year > now.Year() {
			add(PointsFutureYear, fmt.Sprintf("publication year in the future: %d", year))
		} else if year < anachronismEnd && mentionsModernTopic(entry.Title) {
			add(PointsAnachronism, fmt.Sprintf("year %d is too early for a modern topic", year))
		}
	}

	if initialsOnly.MatchString(entry.AuthorString()) {
		add(PointsInitialsOnly, "author given as initials only")
	}
	if !entry.HasAuthor() {
		add(PointsMissingAuthor, "author missing")
	}

	if venue := entry.Venue(); venue != "" {
		for _, re := range suspiciousVenues {
			if re.MatchString(venue) {
				add(PointsSuspiciousVenue, "suspicious publisher or journal: "+venue)
				break
			}
		}
	}

	if score > maxScore {
		score = maxScore
	}
	level := LevelFor(score)
	return Assessment{
		RiskScore:      score,
		Level:          level,
		Warnings:       warnings,
		Recommendation: Recommendation(level),
	}
}

// LevelFor buckets a score: high from 70, medium from 40.
func LevelFor(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumMinimum:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Recommendation returns the advice shown for a level.
func Recommendation(l Level) string {
	switch l {
	case LevelHigh:
		return "manual verification strongly recommended"
	case LevelMedium:
		return "manual verification advised"
	default:
		return "low risk"
	}
}

func mentionsModernTopic(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range modernTopics {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
