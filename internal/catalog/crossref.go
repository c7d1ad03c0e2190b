package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matsen/bibcheck/internal/reference"
)

// CrossRefBaseURL is the CrossRef REST API base URL.
const CrossRefBaseURL = "https://api.crossref.org"

// CrossRef is a client for the CrossRef works API. Besides entry lookups it
// serves the work records used for retraction checks.
type CrossRef struct {
	client
}

// NewCrossRef creates a CrossRef client.
func NewCrossRef(opts ...Option) *CrossRef {
	return &CrossRef{client: newClient(NameCrossRef, CrossRefBaseURL, DefaultTimeout, opts)}
}

// Work is a CrossRef work record.
type Work struct {
	DOI            string       `json:"DOI"`
	Title          []string     `json:"title"`
	Type           string       `json:"type"`
	URL            string       `json:"URL"`
	Author         []WorkAuthor `json:"author"`
	ContainerTitle []string     `json:"container-title"`
	Published      *DateParts   `json:"published"`
	Created        *DateParts   `json:"created"`
	UpdateTo       []Update     `json:"update-to"`
}

// WorkAuthor is an author on a CrossRef work.
type WorkAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// DateParts is a CrossRef partial date.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Update links a work to an editorial notice that updates it. Retractions
// recorded by the Retraction Watch database carry source "retraction-watch".
type Update struct {
	DOI    string `json:"DOI"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Label  string `json:"label"`
}

// FirstTitle returns the work's primary title.
func (w Work) FirstTitle() string {
	if len(w.Title) == 0 {
		return ""
	}
	return w.Title[0]
}

// Year returns the publication year, falling back to the creation date.
func (w Work) Year() int {
	for _, d := range []*DateParts{w.Published, w.Created} {
		if d != nil && len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 && d.DateParts[0][0] != 0 {
			return d.DateParts[0][0]
		}
	}
	return 0
}

// AuthorString joins the work's authors as "Given Family".
func (w Work) AuthorString() string {
	names := make([]string, 0, len(w.Author))
	for _, a := range w.Author {
		n := strings.TrimSpace(a.Given + " " + a.Family)
		if n == "" {
			n = a.Name
		}
		if n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

type crossRefMessage[T any] struct {
	Status  string `json:"status"`
	Message T      `json:"message"`
}

type crossRefItems struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

func (c *CrossRef) Name() string { return NameCrossRef }

func (c *CrossRef) query() url.Values {
	q := url.Values{}
	if c.mailto != "" {
		q.Set("mailto", c.mailto)
	}
	return q
}

// Lookup searches CrossRef with a bibliographic query built from the cleaned
// title and the first author's surname.
func (c *CrossRef) Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error) {
	cleaned, lastName := searchTerms(title, author)
	if cleaned == "" {
		return nil, nil
	}
	bib := cleaned
	if lastName != "" {
		bib += " " + lastName
	}

	q := c.query()
	q.Set("query.bibliographic", bib)
	q.Set("rows", strconv.Itoa(DefaultRows))

	var resp crossRefMessage[crossRefItems]
	if err := c.getJSON(ctx, "/works", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Message.Items) == 0 {
		return nil, nil
	}

	best := resp.Message.Items[0]
	matchTitle := best.FirstTitle()
	workURL := best.URL
	if workURL == "" && best.DOI != "" {
		workURL = "https://doi.org/" + best.DOI
	}
	var journal string
	if len(best.ContainerTitle) > 0 {
		journal = best.ContainerTitle[0]
	}

	return &reference.MatchCandidate{
		Title:      matchTitle,
		Author:     firstNonEmpty(best.AuthorString(), author),
		Year:       best.Year(),
		DOI:        best.DOI,
		Journal:    journal,
		URL:        workURL,
		Confidence: confidence(title, matchTitle),
		Source:     SourceCrossRef,
	}, nil
}

// Work fetches the record registered for doi. A DOI unknown to CrossRef
// yields an error satisfying IsNotFound.
func (c *CrossRef) Work(ctx context.Context, doi string) (*Work, error) {
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", ErrNotFound)
	}

	var resp crossRefMessage[Work]
	if err := c.getJSON(ctx, "/works/"+url.PathEscape(doi), c.query(), &resp); err != nil {
		return nil, err
	}
	if resp.Message.DOI == "" && len(resp.Message.Title) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, doi)
	}
	return &resp.Message, nil
}

// SearchWorks runs a free-text query and returns up to rows works.
func (c *CrossRef) SearchWorks(ctx context.Context, query string, rows int) ([]Work, error) {
	if rows <= 0 {
		rows = DefaultRows
	}

	q := c.query()
	q.Set("query", query)
	q.Set("rows", strconv.Itoa(rows))

	var resp crossRefMessage[crossRefItems]
	if err := c.getJSON(ctx, "/works", q, &resp); err != nil {
		return nil, err
	}
	return resp.Message.Items, nil
}
