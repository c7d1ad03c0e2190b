// Package reference defines the core domain types for bibliographic entries
// and the results of verifying them against external catalogs.
package reference

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Entry is a CSL-JSON bibliographic record. Every field is optional; an entry
// needs a title to be verifiable.
type Entry struct {
	ID             string         `json:"id,omitempty"`
	Type           string         `json:"type,omitempty"`
	Title          string         `json:"title,omitempty"`
	Author         Authors        `json:"author,omitzero"`
	Issued         *Date          `json:"issued,omitempty"`
	YearField      FlexibleString `json:"year,omitempty"` // Non-standard but common in hand-written lists
	DOI            string         `json:"DOI,omitempty"`
	URL            string         `json:"URL,omitempty"`
	ISBN           string         `json:"ISBN,omitempty"`
	Publisher      string         `json:"publisher,omitempty"`
	ContainerTitle Strings        `json:"container-title,omitempty"`
}

// AuthorString returns the first author as a display string.
func (e Entry) AuthorString() string {
	return strings.TrimSpace(e.Author.First())
}

// HasAuthor reports whether the entry carries any author information.
func (e Entry) HasAuthor() bool {
	return !e.Author.IsZero()
}

// Year returns the publication year from the issued date, falling back to
// the non-standard year field. Returns 0 when unknown.
func (e Entry) Year() int {
	if e.Issued != nil {
		if y := e.Issued.Year(); y != 0 {
			return y
		}
	}
	return parseYear(e.YearField.String())
}

// Venue returns the publisher, falling back to the container title.
func (e Entry) Venue() string {
	if e.Publisher != "" {
		return e.Publisher
	}
	return e.ContainerTitle.First()
}

// Date is a CSL-JSON date variable.
type Date struct {
	DateParts [][]FlexibleString `json:"date-parts,omitempty"`
	Literal   string             `json:"literal,omitempty"`
	Raw       string             `json:"raw,omitempty"`
}

// Year returns the year component of the date, or 0.
func (d Date) Year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		if y := parseYear(d.DateParts[0][0].String()); y != 0 {
			return y
		}
	}
	if y := parseYear(d.Literal); y != 0 {
		return y
	}
	return parseYear(d.Raw)
}

// YearDate builds an issued date holding only a year.
func YearDate(year int) *Date {
	return &Date{DateParts: [][]FlexibleString{{FlexibleString(strconv.Itoa(year))}}}
}

var yearPattern = regexp.MustCompile(`-?\d{1,4}`)

// parseYear reads a year from a bare number or the first digit run of a
// free-form date such as "1998-05" or "c. 1850".
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y
	}
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// ParseYear exposes the year heuristic for provider payloads that carry
// dates as free text.
func ParseYear(s string) int {
	return parseYear(s)
}

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// Strings is a text field that may be encoded as a string or a list of strings.
type Strings []string

func (s *Strings) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = Strings{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("cannot unmarshal %s into Strings", string(data))
	}
	*s = many
	return nil
}

// First returns the first non-empty value.
func (s Strings) First() string {
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
