package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Name is a CSL-JSON name record.
type Name struct {
	Family  string `json:"family,omitempty"`  // Last/family name
	Given   string `json:"given,omitempty"`   // First/given name(s)
	Literal string `json:"literal,omitempty"` // Institutional or unparsed name
}

// String renders the name as "Given Family", or the literal form when set.
func (n Name) String() string {
	if n.Literal != "" {
		return n.Literal
	}
	if n.Given != "" && n.Family != "" {
		return n.Given + " " + n.Family
	}
	return n.Family
}

// Authors holds the author field of an entry, which CSL producers emit either
// as a plain string or as an ordered list of name records.
type Authors struct {
	Raw   string // Set when the field was a plain string
	Names []Name
}

// UnmarshalJSON accepts null, a string, or a list of name records.
func (a *Authors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = Authors{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Authors{Raw: s}
		return nil
	case '[':
		var names []Name
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("parsing author list: %w", err)
		}
		*a = Authors{Names: names}
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into Authors", string(data))
}

// MarshalJSON writes the field back in the shape it was read.
func (a Authors) MarshalJSON() ([]byte, error) {
	if a.Names != nil {
		return json.Marshal(a.Names)
	}
	if a.Raw != "" {
		return json.Marshal(a.Raw)
	}
	return []byte("null"), nil
}

// IsZero reports whether no author information is present.
func (a Authors) IsZero() bool {
	return strings.TrimSpace(a.Raw) == "" && len(a.Names) == 0
}

// First returns the first author as a display string.
func (a Authors) First() string {
	if len(a.Names) > 0 {
		return a.Names[0].String()
	}
	return a.Raw
}

// String joins every author with ", ".
func (a Authors) String() string {
	if len(a.Names) == 0 {
		return a.Raw
	}
	parts := make([]string, 0, len(a.Names))
	for _, n := range a.Names {
		if s := n.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
