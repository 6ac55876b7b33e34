// SPDX-License-Identifier: MIT

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/censord/internal/log"
)

// File names inside the mirror directory. The layout matches the central
// host's remote_data tree byte for byte so the SFTP mirror stays trivial.
const (
	FileBlacklist        = "blacklist.json"
	FileCustom           = "custom.json"
	FileCustomOld        = "custom_old.json"
	FileDictionary       = "dictionary.json"
	FileNicknames        = "nicknames.json"
	FileRandomPrefixes   = "random_prefixes.json"
	FileRandomSuffixes   = "random_suffixes.json"
	FileTrustedUsernames = "trusted_usernames.json"
	FileUsernames        = "usernames.json"

	// DirSorted holds any number of *.json list files merged on load.
	DirSorted = "whitelist_data"
)

// Paths resolves the on-disk layout under a data directory.
type Paths struct {
	Root   string // data dir
	Remote string // mirror of the central host
}

// NewPaths builds the standard layout below dataDir.
func NewPaths(dataDir string) Paths {
	return Paths{
		Root:   dataDir,
		Remote: filepath.Join(dataDir, "remote"),
	}
}

func (p Paths) RemoteFile(name string) string {
	return filepath.Join(p.Remote, name)
}

func (p Paths) SortedDir() string {
	return filepath.Join(p.Remote, DirSorted)
}

// EnsureFiles creates the data directories and seeds the client-specific
// files with empty values when missing. Files that only the central host
// can provide (blacklist, dictionary, prefixes, suffixes) are deliberately
// not seeded; a missing one surfaces as a load error instead.
func EnsureFiles(p Paths) error {
	for _, dir := range []string{p.Root, p.Remote, p.SortedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}

	logger := log.WithComponent("dataset")
	defaults := map[string]any{
		FileCustom:           []string{},
		FileCustomOld:        []string{},
		FileNicknames:        map[string]string{},
		FileTrustedUsernames: []string{},
		FileUsernames:        []string{},
	}
	for name, value := range defaults {
		path := p.RemoteFile(name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		logger.Info().
			Str("event", "dataset.init_file").
			Str("path", path).
			Msg("initialising missing data file")
		if err := WriteJSON(path, value); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON atomically writes v as JSON to path.
func WriteJSON(path string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
