package verify

import (
	"context"
	"reflect"
	"testing"

	"github.com/matsen/bibcheck/internal/reference"
)

const rawArendt = "Arendt H. The Human Condition. Chicago: University of Chicago Press, 1958."

func TestMatchRaw(t *testing.T) {
	tests := []struct {
		name           string
		candidate      reference.MatchCandidate
		wantPoints     int
		wantConfidence int
		wantStatus     InistStatus
		wantMatched    []string
	}{
		{
			name: "all four criteria",
			candidate: reference.MatchCandidate{
				Title: "The Human Condition", Author: "Hannah Arendt", Year: 1958,
				Publisher: "University of Chicago Press",
			},
			wantPoints:     4,
			wantConfidence: 95,
			wantStatus:     InistFound,
			wantMatched:    []string{CriterionTitle, CriterionAuthor, CriterionYear, CriterionJournal},
		},
		{
			name: "exact title and author",
			candidate: reference.MatchCandidate{
				Title: "The Human Condition", Author: "Hannah Arendt", Year: 1998,
			},
			wantPoints:     2,
			wantConfidence: 85,
			wantStatus:     InistFound,
			wantMatched:    []string{CriterionTitle, CriterionAuthor},
		},
		{
			name: "two points with a looser title",
			candidate: reference.MatchCandidate{
				Title: "The Human Condition Revisited", Author: "Hannah Arendt", Year: 1958,
			},
			wantPoints:     2,
			wantConfidence: 75,
			wantStatus:     InistFound,
			wantMatched:    []string{CriterionAuthor, CriterionYear},
		},
		{
			name: "title alone looks fabricated",
			candidate: reference.MatchCandidate{
				Title: "The Human Condition", Author: "John Smith", Year: 2015,
			},
			wantPoints:     1,
			wantConfidence: 40,
			wantStatus:     InistToBeVerified,
			wantMatched:    []string{CriterionTitle},
		},
		{
			name: "unrelated candidate",
			candidate: reference.MatchCandidate{
				Title: "Quantum Field Theory", Author: "Steven Weinberg", Year: 1995,
			},
			wantPoints:     0,
			wantConfidence: 0,
			wantStatus:     InistNotFound,
			wantMatched:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchRaw(rawArendt, tt.candidate)
			if got.Points != tt.wantPoints {
				t.Errorf("Points = %d, want %d (matched %v)", got.Points, tt.wantPoints, got.Matched)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %d, want %d", got.Confidence, tt.wantConfidence)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if !reflect.DeepEqual(got.Matched, tt.wantMatched) {
				t.Errorf("Matched = %v, want %v", got.Matched, tt.wantMatched)
			}
		})
	}
}

func TestMatchRaw_SurnameNeedsWordBoundary(t *testing.T) {
	got := MatchRaw("Smithson J. Minerals of Britain. 1820.", reference.MatchCandidate{
		Title: "Unrelated", Author: "Adam Smith",
	})
	for _, c := range got.Matched {
		if c == CriterionAuthor {
			t.Error("surname Smith matched inside Smithson")
		}
	}
}

func TestVerifyRaw(t *testing.T) {
	weak := &fakeProvider{name: "weak", candidate: &reference.MatchCandidate{
		Title: "Quantum Field Theory", Author: "Steven Weinberg", Source: "Weak", Confidence: 99,
	}}
	strong := &fakeProvider{name: "strong", candidate: &reference.MatchCandidate{
		Title: "The Human Condition", Author: "Hannah Arendt", Year: 1958, Source: "Strong", Confidence: 50,
	}}
	unused := &fakeProvider{name: "unused", candidate: &reference.MatchCandidate{Title: "X"}}

	v := New([]Step{step(weak, 70, 0), step(strong, 70, 0), step(unused, 70, 0)})
	got := v.VerifyRaw(context.Background(), rawArendt)

	if got.Candidate == nil || got.Candidate.Source != "Strong" {
		t.Fatalf("Candidate = %+v, want the Strong match", got.Candidate)
	}
	if got.Match.Confidence != 95 || got.Candidate.Confidence != 95 {
		t.Errorf("confidence = %d/%d, want 95", got.Match.Confidence, got.Candidate.Confidence)
	}
	if unused.callCount() != 0 {
		t.Error("cascade continued after a confident raw match")
	}
}

func TestVerifyRaw_Blank(t *testing.T) {
	p := &fakeProvider{name: "p"}
	v := New([]Step{step(p, 70, 0)})
	got := v.VerifyRaw(context.Background(), "   ")
	if got.Candidate != nil || got.Match.Status != InistNotFound {
		t.Errorf("VerifyRaw(blank) = %+v", got)
	}
	if p.callCount() != 0 {
		t.Error("provider called for a blank reference")
	}
}
