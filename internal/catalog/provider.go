package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/similarity"
	"github.com/matsen/bibcheck/internal/textnorm"
)

// Provider looks an entry up in one catalog.
//
// Lookup returns (nil, nil) when the catalog has nothing for the query. The
// returned candidate's confidence is the similarity of its title to title.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, title, author string) (*reference.MatchCandidate, error)
}

// Provider names, in the default cascade order.
const (
	NameBnFSPARQL   = "bnf-sparql"
	NameHAL         = "hal"
	NameBnFSRU      = "bnf-sru"
	NameOpenLibrary = "openlibrary"
	NameCrossRef    = "crossref"
	NameOpenAlex    = "openalex"
)

// Source tags recorded on candidates and tallied in reports.
const (
	SourceBnFSPARQL   = "BnF (SPARQL)"
	SourceHAL         = "HAL"
	SourceBnFSRU      = "BnF (SRU)"
	SourceOpenLibrary = "OpenLibrary"
	SourceCrossRef    = "CrossRef"
	SourceOpenAlex    = "OpenAlex"
)

// Sources lists every source tag a candidate can carry.
var Sources = []string{
	SourceBnFSPARQL, SourceHAL, SourceBnFSRU, SourceOpenLibrary, SourceCrossRef, SourceOpenAlex,
}

// DefaultOrder is the cascade order from most to least precise catalog.
var DefaultOrder = []string{
	NameBnFSPARQL, NameHAL, NameBnFSRU, NameOpenLibrary, NameCrossRef, NameOpenAlex,
}

var registry = map[string]func(opts ...Option) Provider{
	NameBnFSPARQL:   func(opts ...Option) Provider { return NewBnFSPARQL(opts...) },
	NameHAL:         func(opts ...Option) Provider { return NewHAL(opts...) },
	NameBnFSRU:      func(opts ...Option) Provider { return NewBnFSRU(opts...) },
	NameOpenLibrary: func(opts ...Option) Provider { return NewOpenLibrary(opts...) },
	NameCrossRef:    func(opts ...Option) Provider { return NewCrossRef(opts...) },
	NameOpenAlex:    func(opts ...Option) Provider { return NewOpenAlex(opts...) },
}

// NewProvider builds the named provider.
func NewProvider(name string, opts ...Option) (Provider, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return ctor(opts...), nil
}

// ProviderNames returns the registered provider names, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// searchTerms returns the cleaned title and the first author's surname used
// to build catalog queries.
func searchTerms(title, author string) (string, string) {
	return textnorm.CleanTitle(title, author), textnorm.ExtractLastName(author)
}

// confidence scores a catalog title against the title the entry claims.
func confidence(claimed, found string) int {
	return similarity.Ratio(claimed, found)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
