// SPDX-License-Identifier: MIT

package censor

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var asciiOnly = runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
}))

// foldASCII drops every non-ASCII rune. The whitelist datasets are plain
// ASCII, so homoglyph tricks reduce to their ASCII skeleton before checks.
func foldASCII(s string) string {
	out, _, err := transform.String(asciiOnly, s)
	if err != nil {
		// Removal cannot fail on valid UTF-8; fall back to a byte filter.
		buf := make([]byte, 0, len(s))
		for i := 0; i < len(s); i++ {
			if s[i] <= 0x7f {
				buf = append(buf, s[i])
			}
		}
		return string(buf)
	}
	return out
}
