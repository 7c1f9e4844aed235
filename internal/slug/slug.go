// Package slug normalises free-form labels such as transaction tags.
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

const maxLen = 40

var reSlug = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{N}_]{1,40}$`)

// IsSlug reports whether s is already a normalised slug: lowercase letters
// of any script, digits and single underscores, at most 40 runes.
func IsSlug(s string) bool {
	if strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") || strings.Contains(s, "__") {
		return false
	}
	return reSlug.MatchString(s)
}

// Slugify lowercases s, turns every run of other characters into one '_',
// trims underscores at both ends and cuts the result to 40 runes.
func Slugify(s string) string {
	out := make([]rune, 0, len(s))
	gap := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if gap && len(out) > 0 {
				out = append(out, '_')
			}
			gap = false
			out = append(out, r)
		} else {
			gap = true
		}
		if len(out) >= maxLen {
			break
		}
	}
	return strings.TrimRight(string(out[:min(len(out), maxLen)]), "_")
}
