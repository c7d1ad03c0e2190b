package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/matsen/bibcheck/internal/reference"
)

// OpenAlexBaseURL is the OpenAlex API base URL.
const OpenAlexBaseURL = "https://api.openalex.org"

// OpenAlex is a client for the OpenAlex works search.
type OpenAlex struct {
	client
}

// NewOpenAlex creates an OpenAlex client.
func NewOpenAlex(opts ...Option) *OpenAlex {
	return &OpenAlex{client: newClient(NameOpenAlex, OpenAlexBaseURL, DefaultTimeout, opts)}
}

type openAlexWork struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DisplayName     string `json:"display_name"`
	PublicationYear int    `json:"publication_year"`
	DOI             string `json:"doi"`
	CitedByCount    int    `json:"cited_by_count"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation *struct {
		Source *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	OpenAccess struct {
		IsOA  bool   `json:"is_oa"`
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

func (o *OpenAlex) Name() string { return NameOpenAlex }

// Lookup searches OpenAlex and reports the top hit with its open-access
// status and citation count.
func (o *OpenAlex) Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error) {
	cleaned, lastName := searchTerms(title, author)
	if cleaned == "" {
		return nil, nil
	}
	search := cleaned
	if lastName != "" {
		search += " " + lastName
	}

	q := url.Values{}
	q.Set("search", search)
	q.Set("per_page", strconv.Itoa(DefaultRows))
	if o.mailto != "" {
		q.Set("mailto", o.mailto)
	}

	var resp openAlexResponse
	if err := o.getJSON(ctx, "/works", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	best := resp.Results[0]
	matchTitle := firstNonEmpty(best.Title, best.DisplayName)

	names := make([]string, 0, len(best.Authorships))
	for _, a := range best.Authorships {
		if a.Author.DisplayName != "" {
			names = append(names, a.Author.DisplayName)
		}
	}

	var journal string
	if best.PrimaryLocation != nil && best.PrimaryLocation.Source != nil {
		journal = best.PrimaryLocation.Source.DisplayName
	}

	return &reference.MatchCandidate{
		Title:         matchTitle,
		Author:        firstNonEmpty(strings.Join(names, ", "), author),
		Year:          best.PublicationYear,
		DOI:           strings.TrimPrefix(best.DOI, "https://doi.org/"),
		Journal:       journal,
		URL:           firstNonEmpty(best.DOI, best.ID),
		Confidence:    confidence(title, matchTitle),
		Source:        SourceOpenAlex,
		OpenAccess:    best.OpenAccess.IsOA,
		OpenAccessURL: best.OpenAccess.OAURL,
		CitedByCount:  best.CitedByCount,
	}, nil
}
