package reference

// VerifiedThreshold is the minimum confidence for a match to count as verified.
const VerifiedThreshold = 70

// Status is the outcome of verifying one entry.
type Status string

const (
	StatusVerified  Status = "verified"
	StatusUncertain Status = "uncertain"
	StatusNotFound  Status = "not_found"
)

// MatchCandidate is a record returned by one catalog for one entry.
type MatchCandidate struct {
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Year       int    `json:"year,omitempty"`
	DOI        string `json:"doi,omitempty"`
	ISBN       string `json:"isbn,omitempty"`
	HalID      string `json:"halId,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
	Journal    string `json:"journal,omitempty"`
	URL        string `json:"url,omitempty"`
	Confidence int    `json:"confidence"` // 0-100
	Source     string `json:"source"`

	// OpenAlex extras
	OpenAccess    bool   `json:"openAccess,omitempty"`
	OpenAccessURL string `json:"openAccessUrl,omitempty"`
	CitedByCount  int    `json:"citedByCount,omitempty"`
}

// VerificationResult pairs an entry with the best candidate found for it.
type VerificationResult struct {
	Original Entry           `json:"original"`
	Verified *MatchCandidate `json:"verified"`
	Status   Status          `json:"status"`
}

// StatusFor maps a best candidate (possibly nil) to a verification status.
func StatusFor(c *MatchCandidate) Status {
	switch {
	case c == nil:
		return StatusNotFound
	case c.Confidence >= VerifiedThreshold:
		return StatusVerified
	default:
		return StatusUncertain
	}
}

// NewResult builds the result for an entry from its best candidate.
func NewResult(e Entry, best *MatchCandidate) VerificationResult {
	return VerificationResult{
		Original: e,
		Verified: best,
		Status:   StatusFor(best),
	}
}
