// Package report aggregates verification results, retraction checks,
// hallucination risk, format issues and duplicates into one quality report.
package report

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/catalog"
	"github.com/matsen/bibcheck/internal/duplicate"
	"github.com/matsen/bibcheck/internal/format"
	"github.com/matsen/bibcheck/internal/hallucination"
	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/retraction"
)

// SourceNone tallies entries with no candidate or an unknown source tag.
const SourceNone = "None"

// Score penalties.
const (
	unverifiedWeight  = 30
	retractedPenalty  = 10
	highRiskPenalty   = 8
	mediumRiskPenalty = 3
	errorPenalty      = 5
	warningPenalty    = 1
	duplicatePenalty  = 3
)

// retractionCheckConfidence is the candidate confidence above which an entry
// without a DOI is still checked for retraction.
const retractionCheckConfidence = 70

// RetractionChecker decides whether a work is retracted. *retraction.Detector
// implements it.
type RetractionChecker interface {
	Check(ctx context.Context, doi, title, author string) retraction.Verdict
}

// QualityReport summarizes a verified reference list.
type QualityReport struct {
	ID                string            `json:"id"`
	TotalEntries      int               `json:"totalEntries"`
	Timestamp         time.Time         `json:"timestamp"`
	Verification      Verification      `json:"verification"`
	Integrity         Integrity         `json:"integrity"`
	HallucinationRisk HallucinationRisk `json:"hallucinationRisk"`
	Format            Format            `json:"format"`
	Duplicates        Duplicates        `json:"duplicates"`
	Sources           map[string]int    `json:"sources"`
	QualityScore      int               `json:"qualityScore"`
}

// Verification counts entries by status.
type Verification struct {
	Verified  int `json:"verified"`
	Uncertain int `json:"uncertain"`
	NotFound  int `json:"notFound"`
}

// Integrity lists retracted entries.
type Integrity struct {
	Retracted         int                `json:"retracted"`
	RetractionDetails []RetractionDetail `json:"retractionDetails"`
}

// RetractionDetail is a positive retraction verdict for one entry.
type RetractionDetail struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	retraction.Verdict
}

// HallucinationRisk counts entries per risk level. Details holds the
// medium and high ones.
type HallucinationRisk struct {
	High    int          `json:"high"`
	Medium  int          `json:"medium"`
	Low     int          `json:"low"`
	Details []RiskDetail `json:"details"`
}

// RiskDetail is the assessment of one medium or high risk entry.
type RiskDetail struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	hallucination.Assessment
}

// Format carries the format validation stats and issues.
type Format struct {
	format.Stats
	Issues []format.Issue `json:"issues"`
}

// Duplicates carries the duplicate pairs.
type Duplicates struct {
	Count int              `json:"count"`
	Pairs []duplicate.Pair `json:"pairs"`
}

// Generator builds quality reports.
type Generator struct {
	retraction RetractionChecker
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRetractionChecker enables retraction checks. Without one, no entry is
// reported as retracted.
func WithRetractionChecker(c RetractionChecker) Option {
	return func(g *Generator) {
		g.retraction = c
	}
}

// WithLogger sets the diagnostic sink.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the time source used for the timestamp and the
// future-year rules.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the report. results[i] must be the verification result of
// entries[i]; a result without a matching entry is scored on its Original.
func (g *Generator) Generate(ctx context.Context, entries []reference.Entry, results []reference.VerificationResult) QualityReport {
	now := g.now()
	r := QualityReport{
		ID:           uuid.NewString(),
		TotalEntries: len(entries),
		Timestamp:    now.UTC(),
		Integrity:    Integrity{RetractionDetails: []RetractionDetail{}},
		HallucinationRisk: HallucinationRisk{
			Details: []RiskDetail{},
		},
		Sources: newSourceTally(),
	}

	for i := range results {
		res := &results[i]
		entry := res.Original
		if i < len(entries) {
			entry = entries[i]
		}

		switch res.Status {
		case reference.StatusVerified:
			r.Verification.Verified++
		case reference.StatusUncertain:
			r.Verification.Uncertain++
		default:
			r.Verification.NotFound++
		}

		source := SourceNone
		if res.Verified != nil {
			if _, known := r.Sources[res.Verified.Source]; known {
				source = res.Verified.Source
			}
		}
		r.Sources[source]++

		if v, ok := g.checkRetraction(ctx, res.Verified); ok {
			r.Integrity.Retracted++
			r.Integrity.RetractionDetails = append(r.Integrity.RetractionDetails, RetractionDetail{
				Index:   i,
				Title:   entry.Title,
				Verdict: v,
			})
			g.logger.Info("retraction detected",
				zap.Int("index", i),
				zap.String("title", entry.Title),
				zap.String("method", string(v.Method)),
				zap.Int("confidence", v.Confidence))
		}

		a := hallucination.Assess(entry, res, now)
		switch a.Level {
		case hallucination.LevelHigh:
			r.HallucinationRisk.High++
		case hallucination.LevelMedium:
			r.HallucinationRisk.Medium++
		default:
			r.HallucinationRisk.Low++
		}
		if a.Level != hallucination.LevelLow {
			r.HallucinationRisk.Details = append(r.HallucinationRisk.Details, RiskDetail{
				Index:      i,
				Title:      entry.Title,
				Assessment: a,
			})
		}
	}

	fv := format.Validate(entries, now)
	r.Format = Format{Stats: fv.Stats, Issues: fv.Issues}

	pairs := duplicate.Detect(entries)
	r.Duplicates = Duplicates{Count: len(pairs), Pairs: pairs}

	r.QualityScore = Score(r)

	g.logger.Info("quality report generated",
		zap.String("id", r.ID),
		zap.Int("entries", r.TotalEntries),
		zap.Int("verified", r.Verification.Verified),
		zap.Int("retracted", r.Integrity.Retracted),
		zap.Int("duplicates", r.Duplicates.Count),
		zap.Int("score", r.QualityScore))

	return r
}

func (g *Generator) checkRetraction(ctx context.Context, c *reference.MatchCandidate) (retraction.Verdict, bool) {
	if g.retraction == nil || c == nil {
		return retraction.Verdict{}, false
	}
	if c.DOI == "" && c.Confidence <= retractionCheckConfidence {
		return retraction.Verdict{}, false
	}
	v := g.retraction.Check(ctx, c.DOI, c.Title, c.Author)
	return v, v.Retracted
}

// Score computes the 0-100 quality score of a report. An empty list carries
// no verification penalty.
func Score(r QualityReport) int {
	score := 100.0
	if r.TotalEntries > 0 {
		rate := float64(r.Verification.Verified) / float64(r.TotalEntries)
		score -= (1 - rate) * unverifiedWeight
	}
	score -= float64(r.Integrity.Retracted * retractedPenalty)
	score -= float64(r.HallucinationRisk.High*highRiskPenalty + r.HallucinationRisk.Medium*mediumRiskPenalty)
	score -= float64(r.Format.Errors*errorPenalty + r.Format.Warnings*warningPenalty)
	score -= float64(r.Duplicates.Count * duplicatePenalty)
	return int(math.Max(0, math.Round(score)))
}

func newSourceTally() map[string]int {
	m := make(map[string]int, len(catalog.Sources)+1)
	for _, s := range catalog.Sources {
		m[s] = 0
	}
	m[SourceNone] = 0
	return m
}
