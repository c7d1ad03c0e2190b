package catalog

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/textnorm"
)

const (
	// BnFCatalogueURL is the BnF general catalogue, which serves SRU.
	BnFCatalogueURL = "https://catalogue.bnf.fr"

	// BnFDataURL is data.bnf.fr, which serves SPARQL.
	BnFDataURL = "https://data.bnf.fr"

	// SPARQLTimeout bounds the full-text SPARQL query, which is slower than
	// the other catalogs.
	SPARQLTimeout = 5 * time.Second

	arkPrefix = "ark:/12148/"
)

var repeatedArk = regexp.MustCompile(`(ark:/12148/)+`)

// arkURL builds a catalogue URL from a record identifier that may or may
// not already carry the ark:/12148/ prefix.
func arkURL(id string) string {
	id = strings.TrimPrefix(strings.TrimSpace(id), arkPrefix)
	return BnFCatalogueURL + "/" + arkPrefix + id
}

// normalizeWorkURI collapses repeated ARK prefixes and turns a bare ARK
// into a catalogue URL.
func normalizeWorkURI(uri string) string {
	uri = repeatedArk.ReplaceAllString(uri, arkPrefix)
	if strings.HasPrefix(uri, "ark:/") {
		uri = BnFCatalogueURL + "/" + uri
	}
	return uri
}

// BnFSRU is a client for the BnF catalogue SRU interface, returning Dublin
// Core records.
type BnFSRU struct {
	client
}

// NewBnFSRU creates a BnF SRU client.
func NewBnFSRU(opts ...Option) *BnFSRU {
	return &BnFSRU{client: newClient(NameBnFSRU, BnFCatalogueURL, DefaultTimeout, opts)}
}

type sruResponse struct {
	XMLName         xml.Name    `xml:"searchRetrieveResponse"`
	NumberOfRecords int         `xml:"numberOfRecords"`
	Records         []sruRecord `xml:"records>record"`
}

type sruRecord struct {
	Identifier string `xml:"recordIdentifier"`
	DC         struct {
		Title      []string `xml:"title"`
		Creator    []string `xml:"creator"`
		Date       []string `xml:"date"`
		Publisher  []string `xml:"publisher"`
		Identifier []string `xml:"identifier"`
	} `xml:"recordData>dc"`
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (b *BnFSRU) Name() string { return NameBnFSRU }

// Lookup runs an SRU searchRetrieve on title and author surname.
func (b *BnFSRU) Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error) {
	cleaned, lastName := searchTerms(title, author)
	if cleaned == "" {
		return nil, nil
	}
	cql := fmt.Sprintf(`bib.title all "%s"`, strings.ReplaceAll(cleaned, `"`, " "))
	if lastName != "" {
		cql += fmt.Sprintf(` and bib.author all "%s"`, lastName)
	}

	q := url.Values{}
	q.Set("version", "1.2")
	q.Set("operation", "searchRetrieve")
	q.Set("query", cql)
	q.Set("recordSchema", "dublincore")
	q.Set("maximumRecords", strconv.Itoa(DefaultRows))

	body, err := b.get(ctx, "/api/SRU", q, "application/xml")
	if err != nil {
		return nil, err
	}

	var resp sruResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing %s response: %v", ErrInvalidResponse, b.name, err)
	}
	if len(resp.Records) == 0 {
		return nil, nil
	}

	rec := resp.Records[0]
	matchTitle := first(rec.DC.Title)
	c := &reference.MatchCandidate{
		Title:      matchTitle,
		Author:     firstNonEmpty(textnorm.CleanAuthorName(first(rec.DC.Creator)), author),
		Year:       reference.ParseYear(first(rec.DC.Date)),
		Publisher:  first(rec.DC.Publisher),
		URL:        arkURL(rec.Identifier),
		Confidence: confidence(title, matchTitle),
		Source:     SourceBnFSRU,
	}
	for _, id := range rec.DC.Identifier {
		if id = strings.TrimSpace(id); id != "" && !strings.HasPrefix(id, "http") {
			c.ISBN = strings.TrimPrefix(id, "ISBN ")
			break
		}
	}
	return c, nil
}

// BnFSPARQL is a client for the data.bnf.fr SPARQL endpoint. It only runs
// when both a title and an author surname are known.
type BnFSPARQL struct {
	client
}

// NewBnFSPARQL creates a BnF SPARQL client.
func NewBnFSPARQL(opts ...Option) *BnFSPARQL {
	return &BnFSPARQL{client: newClient(NameBnFSPARQL, BnFDataURL, SPARQLTimeout, opts)}
}

type sparqlValue struct {
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []struct {
			Work        sparqlValue  `json:"work"`
			Title       sparqlValue  `json:"title"`
			CreatorName sparqlValue  `json:"creatorName"`
			Date        *sparqlValue `json:"date"`
			Publisher   *sparqlValue `json:"publisher"`
		} `json:"bindings"`
	} `json:"results"`
}

const sparqlTemplate = `PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX foaf: <http://xmlns.com/foaf/0.1/>

SELECT DISTINCT ?work ?title ?creatorName ?date ?publisher WHERE {
  ?work dcterms:title ?title .
  ?title bif:contains "'%s'" .
  ?work dcterms:creator ?creator .
  ?creator foaf:name ?creatorName .
  ?creatorName bif:contains "'%s'" .
  OPTIONAL { ?work dcterms:date ?date }
  OPTIONAL { ?work dcterms:publisher ?publisher }
} LIMIT 3`

// sparqlLiteral removes the quote characters that would break the
// bif:contains literal.
func sparqlLiteral(s string) string {
	s = strings.NewReplacer(`"`, " ", `'`, " ", `\`, " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func (b *BnFSPARQL) Name() string { return NameBnFSPARQL }

// Lookup runs a full-text SPARQL query and keeps the binding whose title is
// most similar to the claimed one.
func (b *BnFSPARQL) Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error) {
	cleaned, lastName := searchTerms(title, author)
	cleaned, lastName = sparqlLiteral(cleaned), sparqlLiteral(lastName)
	if cleaned == "" || lastName == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("query", fmt.Sprintf(sparqlTemplate, cleaned, lastName))
	q.Set("format", "json")

	var resp sparqlResponse
	if err := b.getJSON(ctx, "/sparql", q, &resp); err != nil {
		return nil, err
	}

	var best *reference.MatchCandidate
	for _, row := range resp.Results.Bindings {
		score := confidence(title, row.Title.Value)
		if score <= 0 || (best != nil && score <= best.Confidence) {
			continue
		}
		best = &reference.MatchCandidate{
			Title:      row.Title.Value,
			Author:     textnorm.CleanAuthorName(row.CreatorName.Value),
			URL:        normalizeWorkURI(row.Work.Value),
			Confidence: score,
			Source:     SourceBnFSPARQL,
		}
		if row.Date != nil {
			best.Year = reference.ParseYear(row.Date.Value)
		}
		if row.Publisher != nil {
			best.Publisher = row.Publisher.Value
		}
	}
	return best, nil
}
