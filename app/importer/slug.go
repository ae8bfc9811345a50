package importer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// Slugify derives an ASCII slug: "Café Society" -> "cafe-society".
// Names with no ASCII letters or digits keep their lowercased characters
// with whitespace hyphenated.
func Slugify(s string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(s))

	slug := strings.Trim(nonAlphanumeric.ReplaceAllString(strings.ToLower(ascii), "-"), "-")
	if slug != "" {
		return slug
	}

	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}
