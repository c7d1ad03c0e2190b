// Package format checks a CSL-JSON entry list for missing fields and
// malformed values.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/bibcheck/internal/reference"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// RootIndex marks an issue that concerns the whole list rather than one entry.
const RootIndex = -1

const (
	minYear       = 1000
	maxYearsAhead = 5
)

var doiShape = regexp.MustCompile(`^10\.\d{4,}/\S+$`)

// StandardTypes are the CSL item types accepted without comment.
var StandardTypes = map[string]bool{
	"article":           true,
	"article-journal":   true,
	"article-magazine":  true,
	"article-newspaper": true,
	"book":              true,
	"chapter":           true,
	"paper-conference":  true,
	"report":            true,
	"thesis":            true,
	"webpage":           true,
	"post-weblog":       true,
}

// Issue is a single finding.
type Issue struct {
	Index    int      `json:"index"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field"`
}

// Stats counts issues by severity.
type Stats struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Result is the outcome of validating a list. Valid is false when any issue
// has error severity.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
	Stats  Stats   `json:"stats"`
}

// ValidateJSON validates raw CSL-JSON. Input that is not a JSON array yields
// a single root error and no per-entry checks.
func ValidateJSON(data []byte, now time.Time) Result {
	var raw []json.RawMessage
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' || json.Unmarshal(data, &raw) != nil {
		return summarize([]Issue{{
			Index:    RootIndex,
			Severity: SeverityError,
			Message:  "CSL data must be an array",
			Field:    "root",
		}})
	}

	var issues []Issue
	for i, msg := range raw {
		var e reference.Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			issues = append(issues, Issue{
				Index:    i,
				Severity: SeverityError,
				Message:  fmt.Sprintf("entry is not a valid CSL-JSON item: %v", err),
			})
			continue
		}
		issues = append(issues, checkEntry(i, e, now)...)
	}
	return summarize(issues)
}

// Validate runs the per-entry checks on decoded entries.
func Validate(entries []reference.Entry, now time.Time) Result {
	var issues []Issue
	for i, e := range entries {
		issues = append(issues, checkEntry(i, e, now)...)
	}
	return summarize(issues)
}

func checkEntry(i int, e reference.Entry, now time.Time) []Issue {
	var issues []Issue
	add := func(sev Severity, field, msg string) {
		issues = append(issues, Issue{Index: i, Severity: sev, Message: msg, Field: field})
	}

	if strings.TrimSpace(e.Title) == "" {
		add(SeverityError, "title", "title missing or empty")
	}

	if !e.HasAuthor() {
		add(SeverityWarning, "author", "author missing")
	} else {
		for a, n := range e.Author.Names {
			if n.Family == "" && n.Literal == "" {
				add(SeverityWarning, fmt.Sprintf("author[%d]", a),
					fmt.Sprintf("author %d: family or literal name missing", a+1))
			}
		}
	}

	if year := issuedYear(e.Issued); year != 0 && (year < minYear || year > now.Year()+maxYearsAhead) {
		add(SeverityWarning, "issued", fmt.Sprintf("suspicious year: %d", year))
	}

	if e.DOI != "" && !doiShape.MatchString(e.DOI) {
		add(SeverityWarning, "DOI", "invalid DOI format: "+e.DOI)
	}

	if e.URL != "" && !validURL(e.URL) {
		add(SeverityWarning, "URL", "invalid URL: "+e.URL)
	}

	if e.Type != "" && !StandardTypes[e.Type] {
		add(SeverityInfo, "type", "non-standard type: "+e.Type)
	}

	return issues
}

// issuedYear reads the year from date-parts only; literal and raw dates are
// not checked.
func issuedYear(d *reference.Date) int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return reference.ParseYear(d.DateParts[0][0].String())
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func summarize(issues []Issue) Result {
	if issues == nil {
		issues = []Issue{}
	}
	var s Stats
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Info++
		}
	}
	return Result{Valid: s.Errors == 0, Issues: issues, Stats: s}
}
