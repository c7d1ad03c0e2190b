package catalog

import (
	"context"
	"net/url"
	"strconv"

	"github.com/matsen/bibcheck/internal/reference"
)

const (
	// OpenLibraryBaseURL is the Open Library API base URL.
	OpenLibraryBaseURL = "https://openlibrary.org"

	openLibrarySite = "https://openlibrary.org"
)

// OpenLibrary is a client for the Open Library search API.
type OpenLibrary struct {
	client
}

// NewOpenLibrary creates an Open Library client.
func NewOpenLibrary(opts ...Option) *OpenLibrary {
	return &OpenLibrary{client: newClient(NameOpenLibrary, OpenLibraryBaseURL, DefaultTimeout, opts)}
}

type openLibraryResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key              string   `json:"key"`
		Title            string   `json:"title"`
		AuthorName       []string `json:"author_name"`
		FirstPublishYear int      `json:"first_publish_year"`
		ISBN             []string `json:"isbn"`
		Publisher        []string `json:"publisher"`
	} `json:"docs"`
}

func (o *OpenLibrary) Name() string { return NameOpenLibrary }

// Lookup searches Open Library by title and author surname.
func (o *OpenLibrary) Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error) {
	cleaned, lastName := searchTerms(title, author)
	if cleaned == "" {
		return nil, nil
	}
	query := "title:" + cleaned
	if lastName != "" {
		query += " author:" + lastName
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(DefaultRows))

	var resp openLibraryResponse
	if err := o.getJSON(ctx, "/search.json", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Docs) == 0 {
		return nil, nil
	}

	best := resp.Docs[0]
	c := &reference.MatchCandidate{
		Title:      best.Title,
		Author:     author,
		Year:       best.FirstPublishYear,
		Confidence: confidence(title, best.Title),
		Source:     SourceOpenLibrary,
	}
	if len(best.AuthorName) > 0 {
		c.Author = best.AuthorName[0]
	}
	if len(best.ISBN) > 0 {
		c.ISBN = best.ISBN[0]
	}
	if len(best.Publisher) > 0 {
		c.Publisher = best.Publisher[0]
	}
	if best.Key != "" {
		c.URL = openLibrarySite + best.Key
	}
	return c, nil
}
