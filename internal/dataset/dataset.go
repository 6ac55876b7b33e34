// SPDX-License-Identifier: MIT

// Package dataset manages the whitelist data files mirrored from the
// central SFTP host, plus the client-local files layered on top.
package dataset

import (
	"strings"
)

// Set is a case-insensitive string set. Members are stored lowercase.
type Set map[string]struct{}

// NewSet builds a Set from the given members, lowercasing each.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s.Add(m)
	}
	return s
}

func (s Set) Add(member string) {
	s[strings.ToLower(member)] = struct{}{}
}

func (s Set) Contains(member string) bool {
	_, ok := s[strings.ToLower(member)]
	return ok
}

func (s Set) Len() int { return len(s) }

// Snapshot is an immutable view of all whitelist data. A Snapshot is never
// mutated after construction; the Store swaps whole snapshots atomically.
type Snapshot struct {
	Blacklist        Set
	Custom           Set
	CustomOld        Set
	Dictionary       Set
	Nicknames        map[string]string // username -> display nickname
	NicknamesSet     Set               // keys and values of Nicknames
	RandomPrefixes   Set
	RandomSuffixes   Set
	SortedDatasets   Set // every file under whitelist_data/ merged
	TrustedUsernames Set
	Usernames        Set
	Version          uint64
}

// WordWhitelisted reports whether word appears in any whitelist set.
// Sets are checked in order of expected size, smallest first.
func (s *Snapshot) WordWhitelisted(word string) bool {
	return s.Custom.Contains(word) ||
		s.RandomPrefixes.Contains(word) ||
		s.RandomSuffixes.Contains(word) ||
		s.NicknamesSet.Contains(word) ||
		s.TrustedUsernames.Contains(word) ||
		s.Usernames.Contains(word) ||
		s.SortedDatasets.Contains(word) ||
		s.CustomOld.Contains(word) ||
		s.Dictionary.Contains(word)
}

// Nickname returns the user's nickname, or "" if none is registered.
func (s *Snapshot) Nickname(username string) string {
	return s.Nicknames[strings.ToLower(username)]
}

// Trusted reports whether the user bypasses the censor entirely.
func (s *Snapshot) Trusted(username string) bool {
	return s.TrustedUsernames.Contains(username)
}
