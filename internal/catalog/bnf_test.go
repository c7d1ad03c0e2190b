package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sruBody = `<?xml version="1.0" encoding="UTF-8"?>
<srw:searchRetrieveResponse xmlns:srw="http://www.loc.gov/zing/srw/">
  <srw:version>1.2</srw:version>
  <srw:numberOfRecords>1</srw:numberOfRecords>
  <srw:records>
    <srw:record>
      <srw:recordSchema>dc</srw:recordSchema>
      <srw:recordPacking>xml</srw:recordPacking>
      <srw:recordData>
        <oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/" xmlns:dc="http://purl.org/dc/elements/1.1/">
          <dc:identifier>https://catalogue.bnf.fr/ark:/12148/cb35172806z</dc:identifier>
          <dc:identifier>ISBN 2266026119</dc:identifier>
          <dc:title>Condition de l'homme moderne</dc:title>
          <dc:creator>Arendt, Hannah (1906-1975). Auteur du texte</dc:creator>
          <dc:publisher>Calmann-Lévy (Paris)</dc:publisher>
          <dc:date>1961</dc:date>
        </oai_dc:dc>
      </srw:recordData>
      <srw:recordIdentifier>ark:/12148/cb35172806z</srw:recordIdentifier>
    </srw:record>
  </srw:records>
</srw:searchRetrieveResponse>`

func TestBnFSRU_Lookup(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/SRU" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sruBody))
	}))
	defer server.Close()

	c := NewBnFSRU(WithBaseURL(server.URL), WithRateLimit(0))
	got, err := c.Lookup(context.Background(), "Condition de l'homme moderne", "Hannah Arendt")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got == nil {
		t.Fatal("Lookup() returned nil candidate")
	}

	if gotQuery != `bib.title all "Condition de l'homme moderne" and bib.author all "Arendt"` {
		t.Errorf("query = %q", gotQuery)
	}
	if got.Author != "Arendt, Hannah" {
		t.Errorf("Author = %q, want %q", got.Author, "Arendt, Hannah")
	}
	if got.Year != 1961 {
		t.Errorf("Year = %d, want 1961", got.Year)
	}
	if got.URL != "https://catalogue.bnf.fr/ark:/12148/cb35172806z" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.ISBN != "2266026119" {
		t.Errorf("ISBN = %q", got.ISBN)
	}
	if got.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", got.Confidence)
	}
	if got.Source != SourceBnFSRU {
		t.Errorf("Source = %q", got.Source)
	}
}

func TestBnFSRU_LookupNoRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<srw:searchRetrieveResponse xmlns:srw="http://www.loc.gov/zing/srw/"><srw:numberOfRecords>0</srw:numberOfRecords></srw:searchRetrieveResponse>`))
	}))
	defer server.Close()

	c := NewBnFSRU(WithBaseURL(server.URL), WithRateLimit(0))
	got, err := c.Lookup(context.Background(), "Nothing at all", "")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != nil {
		t.Errorf("Lookup() = %+v, want nil", got)
	}
}

func TestBnFSPARQL_Lookup(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(`{"results":{"bindings":[
			{"work":{"value":"https://catalogue.bnf.fr/ark:/12148/ark:/12148/cb1"},"title":{"value":"Les Misérables, tome 1"},"creatorName":{"value":"Victor Hugo"}},
			{"work":{"value":"ark:/12148/cb2"},"title":{"value":"Les Misérables"},"creatorName":{"value":"Hugo, Victor (1802-1885). Auteur du texte"},"date":{"value":"1862"},"publisher":{"value":"Lacroix"}}
		]}}`))
	}))
	defer server.Close()

	c := NewBnFSPARQL(WithBaseURL(server.URL), WithRateLimit(0))
	got, err := c.Lookup(context.Background(), "Les Misérables", "Victor Hugo")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got == nil {
		t.Fatal("Lookup() returned nil candidate")
	}

	if !strings.Contains(gotQuery, `bif:contains "'Les Misérables'"`) || !strings.Contains(gotQuery, `bif:contains "'Hugo'"`) {
		t.Errorf("query missing full-text terms:\n%s", gotQuery)
	}
	if got.Title != "Les Misérables" || got.Confidence != 100 {
		t.Errorf("best = %q (%d), want exact title at 100", got.Title, got.Confidence)
	}
	if got.URL != "https://catalogue.bnf.fr/ark:/12148/cb2" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.Author != "Hugo, Victor" {
		t.Errorf("Author = %q", got.Author)
	}
	if got.Year != 1862 || got.Publisher != "Lacroix" {
		t.Errorf("Year/Publisher = %d/%q", got.Year, got.Publisher)
	}
}

func TestBnFSPARQL_SkipsWithoutAuthor(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewBnFSPARQL(WithBaseURL(server.URL), WithRateLimit(0))
	got, err := c.Lookup(context.Background(), "Les Misérables", "")
	if err != nil || got != nil {
		t.Errorf("Lookup() = %v, %v; want nil, nil", got, err)
	}
	if called {
		t.Error("endpoint called without an author")
	}
}

func TestBnFSPARQL_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := NewBnFSPARQL(WithBaseURL(server.URL), WithRateLimit(0), WithTimeout(50*time.Millisecond))
	_, err := c.Lookup(context.Background(), "Les Misérables", "Victor Hugo")
	if err == nil {
		t.Fatal("Lookup() error = nil, want timeout")
	}
}

func TestNormalizeWorkURI(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://catalogue.bnf.fr/ark:/12148/ark:/12148/cb412050783", "https://catalogue.bnf.fr/ark:/12148/cb412050783"},
		{"ark:/12148/cb412050783", "https://catalogue.bnf.fr/ark:/12148/cb412050783"},
		{"http://data.bnf.fr/ark:/12148/cb1#about", "http://data.bnf.fr/ark:/12148/cb1#about"},
	}

	for _, tt := range tests {
		if got := normalizeWorkURI(tt.input); got != tt.want {
			t.Errorf("normalizeWorkURI(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
