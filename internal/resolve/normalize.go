// Package resolve links free-text person names to identities in reference sources.
package resolve

import (
	"strings"
	"unicode"
)

// NormalizeName canonicalizes a name for comparison by:
//  1. Lowercasing
//  2. Dropping every character outside [a-z0-9] and whitespace
//  3. Collapsing whitespace runs into single spaces and trimming
//
// The result is ASCII only and NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
