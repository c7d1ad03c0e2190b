package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// authorPrefixWindow is how far into a title an author fragment may start and
// still be treated as a leading "Author. Title" run.
const authorPrefixWindow = 10

var (
	subtitleSeparators = []string{":", " - ", " – ", " — "}

	parenAside   = regexp.MustCompile(`\([^)]*\)`)
	bracketAside = regexp.MustCompile(`\[[^\]]*\]`)
	volumeMarker = regexp.MustCompile(`(?i)(?:^|\s)(?:vol\.|tome|ed\.|éd\.)\s*\d+`)

	trailingYear  = regexp.MustCompile(`[,.;]\s*\d{4}\s*$`)
	trailingPages = regexp.MustCompile(`[,.;]?\s*\d+\s*p\.?\s*$`)
	trailingPrice = regexp.MustCompile(`[,.;]?\s*(?:\d+(?:[.,]\d{1,2})?\s*(?:€|EUR|\$|£)|(?:€|\$|£)\s*\d+(?:[.,]\d{1,2})?)\s*$`)

	separatorRunes = ".,;:-–"
)

// CleanTitle reduces a title to the part most likely to be indexed by a
// catalog. authorHint, when non-empty, names the entry's author so that an
// "Author. Title" or "Title. Author" fragment can be cut out. The result is
// never emptier than a trimmed copy of the input unless the input is blank.
func CleanTitle(title, authorHint string) string {
	cleaned := strings.TrimSpace(title)
	if cleaned == "" {
		return ""
	}

	cleaned = collapseDuplicatedHalves(cleaned)
	if authorHint != "" {
		cleaned = stripAuthorFragment(cleaned, authorHint)
	}

	for _, sep := range subtitleSeparators {
		if i := strings.Index(cleaned, sep); i > 0 {
			cleaned = cleaned[:i]
		}
	}

	cleaned = parenAside.ReplaceAllString(cleaned, "")
	cleaned = bracketAside.ReplaceAllString(cleaned, "")
	cleaned = volumeMarker.ReplaceAllString(cleaned, "")
	cleaned = stripTrailingMetadata(cleaned)

	cleaned = strings.TrimRight(strings.TrimSpace(cleaned), ".,;:")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}

// collapseDuplicatedHalves turns "Title. Title" into "Title".
func collapseDuplicatedHalves(s string) string {
	trimmed := strings.TrimRight(s, " .")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 2 {
		return s
	}
	a, b := Normalize(parts[0]), Normalize(parts[1])
	if a != "" && a == b {
		return strings.TrimSpace(parts[0])
	}
	return s
}

// stripAuthorFragment removes the author's surname when it appears as a
// leading "Surname. Title" run or as a trailing ". Surname" run. Only
// whole-word occurrences of the surname count.
func stripAuthorFragment(title, author string) string {
	last := ExtractLastName(author)
	if last == "" {
		return title
	}

	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(last))
	if err != nil {
		return title
	}
	for _, loc := range re.FindAllStringIndex(title, -1) {
		if !isWordBoundary(title, loc[0], loc[1]) {
			continue
		}

		var out string
		switch {
		case utf8.RuneCountInString(title[:loc[0]]) <= authorPrefixWindow && followedBySeparator(title[loc[1]:]):
			out = strings.TrimLeft(title[loc[1]:], " "+separatorRunes)
		case precededBySeparator(title[:loc[0]]):
			before := strings.TrimRight(title[:loc[0]], " ")
			out = strings.TrimRight(before[:len(before)-lastRuneLen(before)], " ")
		default:
			continue
		}
		if strings.TrimSpace(out) != "" {
			return out
		}
	}
	return title
}

// isWordBoundary reports whether s[start:end] is not glued to a letter on
// either side.
func isWordBoundary(s string, start, end int) bool {
	if r, _ := utf8.DecodeLastRuneInString(s[:start]); start > 0 && unicode.IsLetter(r) {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(s[end:]); end < len(s) && unicode.IsLetter(r) {
		return false
	}
	return true
}

func precededBySeparator(prefix string) bool {
	p := strings.TrimRight(prefix, " ")
	if p == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(p)
	return strings.ContainsRune(separatorRunes, r)
}

func followedBySeparator(rest string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimLeft(rest, " "))
	return strings.ContainsRune(separatorRunes, r)
}

func lastRuneLen(s string) int {
	_, n := utf8.DecodeLastRuneInString(s)
	return n
}

// stripTrailingMetadata removes trailing year, page-count and price runs
// until none remain, without reducing the title to nothing.
func stripTrailingMetadata(s string) string {
	for {
		trimmed := strings.TrimSpace(s)
		next := trimmed
		for _, re := range []*regexp.Regexp{trailingPrice, trailingPages, trailingYear} {
			if loc := re.FindStringIndex(next); loc != nil && loc[0] > 0 {
				next = strings.TrimSpace(next[:loc[0]])
				break
			}
		}
		if next == trimmed || next == "" {
			return trimmed
		}
		s = next
	}
}
