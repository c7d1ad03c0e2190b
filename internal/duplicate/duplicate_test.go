package duplicate

import (
	"testing"

	"github.com/matsen/bibcheck/internal/reference"
)

func entry(title, author string, year int, doi string) reference.Entry {
	e := reference.Entry{Title: title, DOI: doi}
	if author != "" {
		e.Author = reference.Authors{Raw: author}
	}
	if year != 0 {
		e.Issued = reference.YearDate(year)
	}
	return e
}

func TestDetect_SameDOI(t *testing.T) {
	got := Detect([]reference.Entry{
		entry("Foo: A Study", "", 0, "10.1/x"),
		entry("Foo", "", 0, "10.1/x"),
	})
	if len(got) != 1 {
		t.Fatalf("got %d pairs, want 1", len(got))
	}
	p := got[0]
	if p.Indices != [2]int{0, 1} || !p.DOIMatch || p.Score != 100 || p.Recommendation != Certain {
		t.Errorf("pair = %+v", p)
	}
}

func TestDetect_DOIOverridesDivergentFields(t *testing.T) {
	got := Detect([]reference.Entry{
		entry("Quantum Field Theory", "Steven Weinberg", 1995, "https://doi.org/10.1017/CBO9781139644167"),
		entry("Gardens of the Loire", "Marie Curie", 1850, "10.1017/cbo9781139644167."),
	})
	if len(got) != 1 || got[0].Score != 100 || !got[0].DOIMatch {
		t.Errorf("pairs = %+v", got)
	}
}

func TestDetect_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		a, b      reference.Entry
		wantPairs int
		wantScore int
		wantRec   string
	}{
		{
			name:      "identical without DOI",
			a:         entry("The Human Condition", "Hannah Arendt", 1958, ""),
			b:         entry("The Human Condition", "Hannah Arendt", 1958, ""),
			wantPairs: 1,
			wantScore: 100,
			wantRec:   VeryLikely,
		},
		{
			name:      "same title and author, different year",
			a:         entry("The Human Condition", "Hannah Arendt", 1958, ""),
			b:         entry("The Human Condition", "Hannah Arendt", 1998, ""),
			wantPairs: 1,
			wantScore: 90,
			wantRec:   Possible,
		},
		{
			name:      "subtitle ignored",
			a:         entry("The Human Condition: Second Edition", "Hannah Arendt", 1958, ""),
			b:         entry("The Human Condition", "Hannah Arendt", 1958, ""),
			wantPairs: 1,
			wantScore: 100,
			wantRec:   VeryLikely,
		},
		{
			name:      "same title, different author, same year",
			a:         entry("Introduction", "Hannah Arendt", 1958, ""),
			b:         entry("Introduction", "Zygmunt Bauman", 1958, ""),
			wantPairs: 0,
		},
		{
			name:      "unrelated",
			a:         entry("The Human Condition", "Hannah Arendt", 1958, ""),
			b:         entry("Quantum Field Theory", "Steven Weinberg", 1995, ""),
			wantPairs: 0,
		},
		{
			name:      "different DOIs do not force a match",
			a:         entry("The Human Condition", "Hannah Arendt", 1958, "10.1/a"),
			b:         entry("The Human Condition", "Hannah Arendt", 1958, "10.1/b"),
			wantPairs: 1,
			wantScore: 100,
			wantRec:   VeryLikely,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect([]reference.Entry{tt.a, tt.b})
			if len(got) != tt.wantPairs {
				t.Fatalf("got %d pairs, want %d: %+v", len(got), tt.wantPairs, got)
			}
			if tt.wantPairs == 0 {
				return
			}
			if got[0].Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got[0].Score, tt.wantScore)
			}
			if got[0].Recommendation != tt.wantRec {
				t.Errorf("Recommendation = %q, want %q", got[0].Recommendation, tt.wantRec)
			}
			if got[0].DOIMatch {
				t.Error("DOIMatch set without equal DOIs")
			}
		})
	}
}

func TestDetect_Symmetric(t *testing.T) {
	list := []reference.Entry{
		entry("The Human Condition", "Hannah Arendt", 1958, ""),
		entry("Quantum Field Theory", "Steven Weinberg", 1995, ""),
		entry("The Human Condition.", "H. Arendt", 1958, ""),
		entry("Quantum Field Theory", "S. Weinberg", 1995, "10.1/q"),
	}
	swapped := []reference.Entry{list[2], list[1], list[0], list[3]}
	remap := map[int]int{0: 2, 1: 1, 2: 0, 3: 3}

	type pairKey [2]int
	index := func(pairs []Pair, remap map[int]int) map[pairKey]Pair {
		m := make(map[pairKey]Pair)
		for _, p := range pairs {
			i, j := p.Indices[0], p.Indices[1]
			if remap != nil {
				i, j = remap[i], remap[j]
			}
			if i > j {
				i, j = j, i
			}
			m[pairKey{i, j}] = p
		}
		return m
	}

	a := index(Detect(list), nil)
	b := index(Detect(swapped), remap)
	if len(a) != len(b) {
		t.Fatalf("pair sets differ: %v vs %v", a, b)
	}
	for k, pa := range a {
		pb, ok := b[k]
		if !ok {
			t.Errorf("pair %v missing after swap", k)
			continue
		}
		if pa.Score != pb.Score || pa.TitleSimilarity != pb.TitleSimilarity || pa.AuthorSimilarity != pb.AuthorSimilarity {
			t.Errorf("pair %v: %+v vs %+v", k, pa, pb)
		}
	}
}

func TestDetect_Empty(t *testing.T) {
	if got := Detect(nil); got == nil || len(got) != 0 {
		t.Errorf("Detect(nil) = %#v, want empty slice", got)
	}
}
