// Package slug turns display names into URL-safe identifiers.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^\w\s-]`)
	separators   = regexp.MustCompile(`[-\s]+`)
)

func nonASCII(r rune) bool { return r > unicode.MaxASCII }

// asciiFold decomposes, then drops everything outside ASCII ("Café" -> "Cafe").
// A Chain holds buffers, so each call gets its own.
func asciiFold() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(nonASCII)))
}

// Make returns the slug for s: ASCII-folded, lower-cased, with runs of
// whitespace and dashes collapsed into a single dash and leading/trailing
// dashes and underscores stripped.
func Make(s string) string {
	folded, _, err := transform.String(asciiFold(), s)
	if err != nil {
		folded = s
	}
	folded = invalidChars.ReplaceAllString(strings.ToLower(folded), "")
	folded = separators.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-_")
}
