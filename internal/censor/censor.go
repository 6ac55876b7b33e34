// SPDX-License-Identifier: MIT

// Package censor implements the whitelist censoring engine: messages are
// split into words and every word must clear the whitelists or it is
// replaced by asterisks and queued for approval.
package censor

import (
	"strings"
	"unicode"

	"github.com/ManuGH/censord/internal/dataset"
)

// Lists bundles the dataset snapshot with the push-approval overlay.
// The engine only reads; a Lists value is cheap to construct per call.
type Lists struct {
	Snap    *dataset.Snapshot
	Overlay func(word string) bool // may be nil
}

// Whitelisted reports whether word clears any whitelist set or the overlay.
func (l Lists) Whitelisted(word string) bool {
	if l.Snap.WordWhitelisted(word) {
		return true
	}
	return l.Overlay != nil && l.Overlay(word)
}

// Common suffixes tolerated on otherwise-whitelisted words: plural and
// possessive forms ("tests", "they've"), and dropped trailing g ("makin").
var (
	commonAddedSuffixes   = []string{"s", "ve", "d", "less"}
	commonRemovedSuffixes = []string{"g"}
)

// Censor checks every word of message against the whitelists and replaces
// failing words with asterisks. It returns the lowercased censored words and
// the reassembled message.
func Censor(l Lists, message string) (censoredWords []string, censored string) {
	message = foldASCII(message)
	censoredWords = []string{}
	var assembly []string

	// Single-letter words accumulate here so "b a d w o r d" is checked
	// as one word, not waved through letter by letter.
	bypass := ""

	for _, word := range strings.Split(message, " ") {
		original := word
		clean := cleanWord(word)

		if len(clean) == 1 {
			bypass += clean
			continue
		}
		if len(bypass) > 0 {
			assembly = append(assembly, flushBypass(l, &censoredWords, bypass, true))
			bypass = ""
		}

		needsCheck := strings.TrimSpace(clean) != "" && !l.Whitelisted(strings.ToLower(clean))

		if needsCheck && !isTempName(l.Snap, strings.ToLower(clean)) {
			goodWithSuffixChange := false
			for _, sfx := range commonAddedSuffixes {
				truncated := strings.TrimSuffix(clean, sfx)
				if truncated != clean && l.Whitelisted(strings.ToLower(truncated)) {
					goodWithSuffixChange = true
					break
				}
			}
			if !goodWithSuffixChange {
				for _, sfx := range commonRemovedSuffixes {
					if l.Whitelisted(strings.ToLower(clean + sfx)) {
						goodWithSuffixChange = true
						break
					}
				}
			}

			duplicatedSuffix := false
			if len(clean) >= 3 && !goodWithSuffixChange {
				// "testtttt" and "qqwweerrttyy" style stretching still
				// qualifies as the base word.
				if collapsedWhitelisted(l, strings.ToLower(clean)) {
					duplicatedSuffix = true
					clean = word
				}
			}

			if !goodWithSuffixChange && !duplicatedSuffix {
				censoredWords = append(censoredWords, strings.ToLower(clean))
				clean = maskWord(original, clean)
			}
		} else {
			clean = word
		}

		assembly = append(assembly, clean)
	}

	// Finish any single-letter run at the end of the message.
	if len(bypass) > 0 {
		assembly = append(assembly, flushBypass(l, &censoredWords, bypass, false))
	}

	return censoredWords, strings.Join(assembly, " ")
}

// cleanWord keeps letters and underscores only; punctuation and digits are
// ignored for whitelist purposes.
func cleanWord(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// flushBypass resolves an accumulated single-letter run. joinCensored
// controls whether a censored run keeps the original spacing.
func flushBypass(l Lists, censoredWords *[]string, bypass string, joinCensored bool) string {
	out := bypass
	censored := false
	if strings.TrimSpace(bypass) != "" && !l.Whitelisted(strings.ToLower(bypass)) {
		*censoredWords = append(*censoredWords, strings.ToLower(bypass))
		out = strings.Repeat("*", len(bypass))
		censored = true
	}
	if !censored || joinCensored {
		out = spaceOut(out)
	}
	return out
}

// spaceOut rejoins the characters of s with single spaces ("bad" -> "b a d").
func spaceOut(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}

// maskWord replaces the letter span of original with asterisks. When
// interleaved symbols defeat the in-place replacement, the whole token is
// masked instead.
func maskWord(original, clean string) string {
	previousAsterisks := strings.Count(original, "*")
	masked := strings.ReplaceAll(original, clean, strings.Repeat("*", len(clean)))
	if strings.Count(masked, "*") < len(masked)-previousAsterisks {
		masked = strings.Repeat("*", len(original))
	}
	return masked
}

// isTempName reports whether lower is a generated temp username: a known
// random prefix followed exactly by a known random suffix.
func isTempName(snap *dataset.Snapshot, lower string) bool {
	for prefix := range snap.RandomPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		suffix := strings.TrimSpace(strings.Replace(lower, prefix, "", 1))
		if snap.RandomSuffixes.Contains(suffix) {
			return true
		}
	}
	return false
}
