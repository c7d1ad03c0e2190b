package textnorm

import (
	"regexp"
	"strings"
)

var (
	// 10.XXXX/... where XXXX is 4+ digits
	doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

	doiURLPrefix    = regexp.MustCompile(`(?i)^https?://(dx\.)?doi\.org/`)
	doiSchemePrefix = regexp.MustCompile(`(?i)^doi:\s*`)
	doiSplitPrefix  = regexp.MustCompile(`(10\.\d{4,9})\s*/\s*`)
	wrappedBreak    = regexp.MustCompile(`([/.\-_])\s*[\r\n]+\s*`)
	lineBreaks      = regexp.MustCompile(`\s*[\r\n]+\s*`)
)

// CleanDOI strips resolver prefixes and trailing punctuation from a DOI. A
// closing parenthesis is only stripped while the DOI has more ")" than "(",
// so "10.1016/S0140-6736(97)11096-0)." becomes
// "10.1016/S0140-6736(97)11096-0". Returns false for empty input.
func CleanDOI(doi string) (string, bool) {
	cleaned := strings.TrimSpace(doi)
	cleaned = doiURLPrefix.ReplaceAllString(cleaned, "")
	cleaned = doiSchemePrefix.ReplaceAllString(cleaned, "")

	for {
		before := cleaned
		cleaned = strings.TrimRight(cleaned, ".,;:]")
		for strings.HasSuffix(cleaned, ")") && strings.Count(cleaned, ")") > strings.Count(cleaned, "(") {
			cleaned = cleaned[:len(cleaned)-1]
		}
		if cleaned == before {
			break
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// FindDOI returns the first DOI in free text such as a reference string or
// the text of a PDF page. A line break right after "/", ".", "-" or "_" is
// taken as a wrapped DOI and removed; other breaks end the DOI, so a DOI at
// the end of a line never absorbs the first word of the next one.
func FindDOI(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	joined := wrappedBreak.ReplaceAllString(text, "$1")
	joined = lineBreaks.ReplaceAllString(joined, " ")
	joined = doiSplitPrefix.ReplaceAllString(joined, "$1/")

	m := doiPattern.FindString(joined)
	if m == "" {
		return "", false
	}
	return CleanDOI(m)
}
