// SPDX-License-Identifier: MIT

package censor

import (
	"sort"
	"strings"

	"github.com/ManuGH/censord/internal/dataset"
)

// TempUsername derives a deterministic two-word display name from seed.
// The same seed always maps to the same name, so a user keeps their temp
// identity across messages and restarts without any stored state.
func TempUsername(snap *dataset.Snapshot, seed string) string {
	prefixes := sortedMembers(snap.RandomPrefixes)
	suffixes := sortedMembers(snap.RandomSuffixes)
	if len(prefixes) == 0 || len(suffixes) == 0 {
		return ""
	}

	seed = strings.ToLower(foldASCII(seed))
	sum := 0
	for i := 0; i < len(seed); i++ {
		sum += int(seed[i])
	}

	return capitalize(prefixes[sum%len(prefixes)]) + capitalize(suffixes[sum%len(suffixes)])
}

// UsernameWhitelisted reports whether name is safe to display: either the
// whole name clears the whitelists, or every underscore-separated part does.
func UsernameWhitelisted(l Lists, name string) bool {
	name = strings.ToLower(name)
	if l.Whitelisted(name) {
		return true
	}
	for _, part := range strings.Split(name, "_") {
		if !l.Whitelisted(part) {
			return false
		}
	}
	return true
}

// BlacklistedWords returns the words of message (as typed) that match the
// blacklist exactly, case-insensitively.
func BlacklistedWords(snap *dataset.Snapshot, message string) []string {
	var hits []string
	for _, word := range strings.Split(foldASCII(message), " ") {
		if snap.Blacklist.Contains(word) {
			hits = append(hits, word)
		}
	}
	return hits
}

func sortedMembers(s dataset.Set) []string {
	members := make([]string, 0, s.Len())
	for m := range s {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
