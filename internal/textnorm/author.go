package textnorm

import (
	"regexp"
	"strings"
)

var (
	authorSplit     = regexp.MustCompile(`,| et |&| and `)
	leadingInitial  = regexp.MustCompile(`^\p{Lu}\.?\s+`)
	trailingInitial = regexp.MustCompile(`\s+\p{Lu}\.?$`)

	lifeDates      = regexp.MustCompile(`\s*\([0-9\-\.]+\)`)
	roleQualifiers = regexp.MustCompile(`(?i)\.\s+(Auteur du texte|Éditeur scientifique|Traducteur|Directeur de publication|Préfacier|Illustrateur|Compilateur|Compositeur)(\s+|$)`)
)

// particles are kept with the following word when they precede the surname.
var particles = []string{"de", "du", "des", "le", "la", "les", "van", "von", "den", "der"}

// ExtractLastName returns the surname of the first author in an author
// string such as "H. Arendt", "Arendt, Hannah & Jaspers" or
// "Ludwig van Beethoven" (which yields "van Beethoven").
func ExtractLastName(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return ""
	}

	first := strings.TrimSpace(authorSplit.Split(author, 2)[0])
	first = leadingInitial.ReplaceAllString(first, "")
	first = trailingInitial.ReplaceAllString(first, "")

	parts := strings.Fields(first)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) > 1 {
		candidate := strings.ToLower(parts[len(parts)-2])
		for _, p := range particles {
			if candidate == p {
				return parts[len(parts)-2] + " " + parts[len(parts)-1]
			}
		}
	}
	return parts[len(parts)-1]
}

// CleanAuthorName strips the life-date parentheticals and role qualifiers the
// BnF catalog appends to names, e.g.
// "Arendt, Hannah (1906-1975). Auteur du texte" becomes "Arendt, Hannah".
func CleanAuthorName(name string) string {
	if name == "" {
		return ""
	}
	cleaned := lifeDates.ReplaceAllString(name, "")
	cleaned = roleQualifiers.ReplaceAllString(cleaned, "")
	return strings.Join(strings.Fields(cleaned), " ")
}
