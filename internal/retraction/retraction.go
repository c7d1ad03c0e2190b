// Package retraction decides whether a work has been retracted, using the
// CrossRef record for its DOI, keywords in its title and a search for a
// matching retraction notice.
package retraction

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/catalog"
	"github.com/matsen/bibcheck/internal/similarity"
	"github.com/matsen/bibcheck/internal/textnorm"
)

// Method names which check produced a verdict.
type Method string

const (
	MethodUpdateTo     Method = "crossref-update-to"
	MethodRecordType   Method = "crossref-type"
	MethodTitleMarker  Method = "crossref-title"
	MethodTitleKeyword Method = "title-keyword"
	MethodNoticeSearch Method = "notice-search"
	MethodNone         Method = "none"
)

const (
	retractionWatchSource = "retraction-watch"
	noticeSearchRows      = 3
	noticeTitleMinRatio   = 60
)

// keywords flag a title that itself announces a retraction or correction.
var keywords = []string{
	"retraction", "retracted", "withdrawn", "correction", "erratum", "expression of concern",
}

// WorkSource fetches CrossRef-style work records. *catalog.CrossRef
// implements it.
type WorkSource interface {
	Work(ctx context.Context, doi string) (*catalog.Work, error)
	SearchWorks(ctx context.Context, query string, rows int) ([]catalog.Work, error)
}

// Verdict is the outcome of a retraction check.
type Verdict struct {
	Retracted     bool   `json:"retracted"`
	Confidence    int    `json:"confidence"`
	Method        Method `json:"method"`
	Source        string `json:"source,omitempty"`
	RetractionDOI string `json:"retractionDoi,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
	Details       string `json:"details,omitempty"`
	Badge         string `json:"badge,omitempty"`
}

// Detector runs the retraction checks. A nil source limits it to the title
// keyword scan.
type Detector struct {
	source WorkSource
	logger *zap.Logger
}

// NewDetector creates a Detector. logger may be nil.
func NewDetector(source WorkSource, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{source: source, logger: logger}
}

// Check runs the checks in order and returns the first positive verdict.
// Errors from the work source are logged and the next check runs.
func (d *Detector) Check(ctx context.Context, doi, title, author string) Verdict {
	if cleaned, ok := textnorm.CleanDOI(doi); ok && d.source != nil {
		if v, ok := d.checkRecord(ctx, cleaned); ok {
			return v
		}
	}

	if v, ok := checkKeywords(title); ok {
		return v
	}

	if title != "" && author != "" && d.source != nil {
		if v, ok := d.searchNotice(ctx, title, author); ok {
			return v
		}
	}

	return Verdict{Method: MethodNone}
}

func (d *Detector) checkRecord(ctx context.Context, doi string) (Verdict, bool) {
	work, err := d.source.Work(ctx, doi)
	if err != nil {
		if catalog.IsNotFound(err) {
			d.logger.Debug("DOI not registered", zap.String("doi", doi))
		} else {
			d.logger.Warn("retraction record lookup failed", zap.String("doi", doi), zap.Error(err))
		}
		return Verdict{}, false
	}

	if len(work.UpdateTo) > 0 {
		u := work.UpdateTo[0]
		v := Verdict{
			Retracted:     true,
			Method:        MethodUpdateTo,
			RetractionDOI: u.DOI,
			Details:       firstNonEmpty(u.Label, u.Type),
			Badge:         "RETRACTED",
		}
		if u.Source == retractionWatchSource {
			v.Confidence = 100
			v.Source = "Retraction Watch Database"
		} else {
			v.Confidence = 95
			v.Source = "Publisher Notice"
		}
		return v, true
	}

	if work.Type == "retraction" {
		return Verdict{
			Retracted:  true,
			Confidence: 100,
			Method:     MethodRecordType,
			Source:     "CrossRef",
			Details:    "DOI resolves to a retraction notice",
			Badge:      "RETRACTION NOTICE",
		}, true
	}

	t := work.FirstTitle()
	if strings.HasPrefix(strings.ToUpper(t), "RETRACTED:") || strings.Contains(strings.ToUpper(t), "[RETRACTED]") {
		return Verdict{
			Retracted:  true,
			Confidence: 95,
			Method:     MethodTitleMarker,
			Source:     "CrossRef",
			Details:    t,
			Badge:      "RETRACTED",
		}, true
	}

	return Verdict{}, false
}

func checkKeywords(title string) (Verdict, bool) {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return Verdict{
				Retracted:  true,
				Confidence: 70,
				Method:     MethodTitleKeyword,
				Source:     "Title",
				Keyword:    kw,
				Details:    "title contains " + kw,
				Badge:      "POSSIBLY RETRACTED",
			}, true
		}
	}
	return Verdict{}, false
}

func (d *Detector) searchNotice(ctx context.Context, title, author string) (Verdict, bool) {
	query := textnorm.CleanTitle(title, author) + " retraction " + textnorm.ExtractLastName(author)
	works, err := d.source.SearchWorks(ctx, query, noticeSearchRows)
	if err != nil {
		d.logger.Warn("retraction notice search failed", zap.String("query", query), zap.Error(err))
		return Verdict{}, false
	}

	for _, w := range works {
		if w.Type != "retraction" {
			continue
		}
		if similarity.Ratio(title, w.FirstTitle()) > noticeTitleMinRatio {
			return Verdict{
				Retracted:     true,
				Confidence:    80,
				Method:        MethodNoticeSearch,
				Source:        "CrossRef Search",
				RetractionDOI: w.DOI,
				Details:       w.FirstTitle(),
				Badge:         "POSSIBLY RETRACTED",
			}, true
		}
	}
	return Verdict{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
