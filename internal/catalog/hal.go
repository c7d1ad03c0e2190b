package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/matsen/bibcheck/internal/reference"
)

// HALBaseURL is the HAL open archive API base URL.
const HALBaseURL = "https://api.archives-ouvertes.fr"

// halFields are the document fields requested from HAL's Solr index.
const halFields = "title_s,en_title_s,authFullName_s,publicationDateY_i,producedDateY_i,halId_s,publisher_s,uri_s,doiId_s,journalTitle_s"

// HAL is a client for the HAL (Hyper Articles en Ligne) search API.
type HAL struct {
	client
}

// NewHAL creates a HAL client.
func NewHAL(opts ...Option) *HAL {
	return &HAL{client: newClient(NameHAL, HALBaseURL, DefaultTimeout, opts)}
}

type halResponse struct {
	Response struct {
		NumFound int      `json:"numFound"`
		Docs     []halDoc `json:"docs"`
	} `json:"response"`
}

type halDoc struct {
	Title        []string `json:"title_s"`
	EnTitle      []string `json:"en_title_s"`
	AuthFullName []string `json:"authFullName_s"`
	PublicationY int      `json:"publicationDateY_i"`
	ProducedY    int      `json:"producedDateY_i"`
	HalID        string   `json:"halId_s"`
	Publisher    []string `json:"publisher_s"`
	URI          string   `json:"uri_s"`
	DOI          string   `json:"doiId_s"`
	JournalTitle string   `json:"journalTitle_s"`
}

func (h *HAL) Name() string { return NameHAL }

// Lookup queries HAL for the cleaned title as a phrase, restricted to the
// author's surname when known.
func (h *HAL) Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error) {
	cleaned, lastName := searchTerms(title, author)
	if cleaned == "" {
		return nil, nil
	}
	query := `title_t:"` + strings.ReplaceAll(cleaned, `"`, " ") + `"`
	if lastName != "" {
		query += " AND authFullName_t:" + lastName
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("rows", strconv.Itoa(DefaultRows))
	q.Set("wt", "json")
	q.Set("fl", halFields)

	var resp halResponse
	if err := h.getJSON(ctx, "/search/", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Response.Docs) == 0 {
		return nil, nil
	}

	best := resp.Response.Docs[0]
	var matchTitle string
	if len(best.Title) > 0 {
		matchTitle = best.Title[0]
	} else if len(best.EnTitle) > 0 {
		matchTitle = best.EnTitle[0]
	}

	year := best.PublicationY
	if year == 0 {
		year = best.ProducedY
	}

	c := &reference.MatchCandidate{
		Title:      matchTitle,
		Author:     author,
		Year:       year,
		DOI:        best.DOI,
		HalID:      best.HalID,
		Journal:    best.JournalTitle,
		URL:        best.URI,
		Confidence: confidence(title, matchTitle),
		Source:     SourceHAL,
	}
	if len(best.AuthFullName) > 0 {
		c.Author = best.AuthFullName[0]
	}
	if len(best.Publisher) > 0 {
		c.Publisher = best.Publisher[0]
	}
	if c.URL == "" && best.HalID != "" {
		c.URL = "https://hal.science/" + best.HalID
	}
	return c, nil
}
