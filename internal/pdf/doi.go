// Package pdf pulls a DOI and a likely title out of the first pages of a PDF,
// so a paper on disk can be checked like a reference entry.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/textnorm"
)

// DefaultPages is how many leading pages are searched (DOI is usually on first page).
const DefaultPages = 3

const minTitleLen = 20

// Identity is what could be read from a PDF.
type Identity struct {
	Path  string `json:"path,omitempty"`
	DOI   string `json:"doi,omitempty"`
	Title string `json:"title,omitempty"`
}

// Entry turns the identity into an entry for verification.
func (id Identity) Entry() reference.Entry {
	return reference.Entry{ID: id.Path, Title: id.Title, DOI: id.DOI}
}

// Identify opens the PDF at filePath and reads its DOI and title from the
// first maxPages pages. A PDF without either is not an error.
func Identify(filePath string, maxPages int) (Identity, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return Identity{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	id := IdentifyText(pageTexts(r, maxPages))
	id.Path = filePath
	return id, nil
}

// IdentifyReader is Identify over an in-memory PDF.
func IdentifyReader(r io.ReaderAt, size int64, maxPages int) (Identity, error) {
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return Identity{}, fmt.Errorf("reading PDF: %w", err)
	}
	return IdentifyText(pageTexts(pr, maxPages)), nil
}

// IdentifyText finds the DOI and title in extracted page texts. The title is
// the first substantial line of the first page.
func IdentifyText(pages []string) Identity {
	var id Identity
	if len(pages) == 0 {
		return id
	}

	// A DOI wrapped across lines is rejoined by FindDOI, so search the
	// pages as one text.
	if doi, ok := textnorm.FindDOI(strings.Join(pages, "\n")); ok {
		id.DOI = doi
	}

	for _, line := range strings.Split(pages[0], "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minTitleLen && !isHeaderLine(line) {
			id.Title = line
			break
		}
	}
	return id
}

func pageTexts(r *pdf.Reader, maxPages int) []string {
	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var pages []string
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	case strings.Contains(lower, "doi.org") || strings.HasPrefix(lower, "doi"):
		return true
	}
	return false
}
