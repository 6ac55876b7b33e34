// SPDX-License-Identifier: MIT

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/censord/internal/metrics"
)

// Load parses every dataset file under p into a fresh Snapshot.
// Any malformed or missing file fails the whole load; callers keep serving
// the previous snapshot in that case.
func Load(p Paths) (*Snapshot, error) {
	snap := &Snapshot{}

	lists := []struct {
		name string
		dst  *Set
	}{
		{FileBlacklist, &snap.Blacklist},
		{FileCustom, &snap.Custom},
		{FileCustomOld, &snap.CustomOld},
		{FileDictionary, &snap.Dictionary},
		{FileRandomPrefixes, &snap.RandomPrefixes},
		{FileRandomSuffixes, &snap.RandomSuffixes},
		{FileTrustedUsernames, &snap.TrustedUsernames},
		{FileUsernames, &snap.Usernames},
	}
	for _, l := range lists {
		set, err := loadList(p.RemoteFile(l.name))
		if err != nil {
			return nil, err
		}
		*l.dst = set
	}

	sorted, err := loadSortedDir(p.SortedDir())
	if err != nil {
		return nil, err
	}
	snap.SortedDatasets = sorted

	nicknames, err := loadNicknames(p.RemoteFile(FileNicknames))
	if err != nil {
		return nil, err
	}
	snap.Nicknames = nicknames
	snap.NicknamesSet = make(Set, 2*len(nicknames))
	for user, nick := range nicknames {
		snap.NicknamesSet.Add(user)
		snap.NicknamesSet.Add(nick)
	}

	metrics.RecordDatasetEntries("blacklist", snap.Blacklist.Len())
	metrics.RecordDatasetEntries("custom", snap.Custom.Len())
	metrics.RecordDatasetEntries("dictionary", snap.Dictionary.Len())
	metrics.RecordDatasetEntries("sorted", snap.SortedDatasets.Len())
	metrics.RecordDatasetEntries("usernames", snap.Usernames.Len())

	return snap, nil
}

func loadList(path string) (Set, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s malformed or missing: %w", path, err)
	}
	var entries []string
	if err := json.Unmarshal(buf, &entries); err != nil {
		return nil, fmt.Errorf("%s malformed or missing: %w", path, err)
	}
	return NewSet(entries...), nil
}

func loadSortedDir(dir string) (Set, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	merged := make(Set)
	for _, file := range files {
		set, err := loadList(file)
		if err != nil {
			return nil, err
		}
		for member := range set {
			merged[member] = struct{}{}
		}
	}
	return merged, nil
}

func loadNicknames(path string) (map[string]string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s malformed or missing: %w", path, err)
	}
	var nicknames map[string]string
	if err := json.Unmarshal(buf, &nicknames); err != nil {
		return nil, fmt.Errorf("%s malformed or missing: %w", path, err)
	}
	return nicknames, nil
}
