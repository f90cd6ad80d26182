// Package slug derives unique, URL-safe identifiers from display names.
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
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	multiHyphen  = regexp.MustCompile(`-+`)
)

// stripMarks removes combining marks after NFD decomposition, turning accented
// Latin letters into their ASCII base form.
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Generate derives a slug from a display name: accents transliterated to an
// ASCII base alphabet, lowercased, non-alphanumerics stripped, whitespace
// collapsed to single hyphens, repeated hyphens collapsed, edges trimmed.
// The result is deterministic: the same input always yields the same slug.
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// Đ/đ carries no combining mark, so NFD alone cannot fold it.
	s = strings.NewReplacer("đ", "d", "Đ", "d").Replace(s)

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
