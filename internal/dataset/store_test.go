// SPDX-License-Identifier: MIT

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func writeServerFiles(t *testing.T, p Paths) {
	t.Helper()
	files := map[string]any{
		FileBlacklist:      []string{"badword"},
		FileDictionary:     []string{"hello", "world"},
		FileRandomPrefixes: []string{"happy"},
		FileRandomSuffixes: []string{"dog"},
	}
	for name, value := range files {
		require.NoError(t, WriteJSON(p.RemoteFile(name), value))
	}
}

func newStoreForTest(t *testing.T) *Store {
	t.Helper()
	p := NewPaths(t.TempDir())
	require.NoError(t, EnsureFiles(p))
	writeServerFiles(t, p)

	s, err := NewStore(p)
	require.NoError(t, err)
	return s
}

func TestNewStoreFailsWithoutServerFiles(t *testing.T) {
	// The client-local files are seeded, but the server-provided ones only
	// exist after a mirror run.
	_, err := NewStore(NewPaths(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed or missing")
}

func TestSnapshotLoads(t *testing.T) {
	s := newStoreForTest(t)
	snap := s.Snapshot()

	assert.True(t, snap.Blacklist.Contains("badword"))
	assert.True(t, snap.Dictionary.Contains("HELLO"), "sets are case-insensitive")
	assert.Equal(t, uint64(1), snap.Version)
}

func TestReloadBumpsVersion(t *testing.T) {
	s := newStoreForTest(t)
	require.NoError(t, WriteJSON(s.Paths().RemoteFile(FileCustom), []string{"newword"}))

	require.NoError(t, s.Reload())

	assert.Equal(t, uint64(2), s.Version())
	assert.True(t, s.Snapshot().Custom.Contains("newword"))
}

func TestReloadKeepsSnapshotOnError(t *testing.T) {
	s := newStoreForTest(t)
	bad := s.Paths().RemoteFile(FileDictionary)
	require.NoError(t, writeRaw(bad, "{not json"))

	err := s.Reload()
	require.Error(t, err)
	assert.Equal(t, uint64(1), s.Version())
	assert.True(t, s.Snapshot().Dictionary.Contains("hello"), "previous snapshot keeps serving")
}

func TestSortedDatasetsMerged(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, EnsureFiles(p))
	writeServerFiles(t, p)
	require.NoError(t, WriteJSON(filepath.Join(p.SortedDir(), "a.json"), []string{"alpha"}))
	require.NoError(t, WriteJSON(filepath.Join(p.SortedDir(), "b.json"), []string{"beta"}))

	s, err := NewStore(p)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.SortedDatasets.Contains("alpha"))
	assert.True(t, snap.SortedDatasets.Contains("beta"))
}

func TestOverlay(t *testing.T) {
	s := newStoreForTest(t)

	require.NoError(t, s.AddOverlay(OverlayCustom, "Approved"))
	assert.True(t, s.OverlayContains("approved"), "overlay is case-insensitive")
	assert.False(t, s.OverlayContains("other"))

	assert.Error(t, s.AddOverlay("bogus", "word"))

	sizes := s.OverlaySizes()
	assert.Equal(t, 1, sizes[OverlayCustom])
	assert.Equal(t, 0, sizes[OverlayUsernames])
}

func TestReloadDropsOverlayEntriesNowOnDisk(t *testing.T) {
	s := newStoreForTest(t)
	require.NoError(t, s.AddOverlay(OverlayCustom, "approved"))
	require.NoError(t, s.AddOverlay(OverlayCustom, "pending"))

	// The mirror caught up with one of the two entries.
	require.NoError(t, WriteJSON(s.Paths().RemoteFile(FileCustom), []string{"approved"}))
	require.NoError(t, s.Reload())

	assert.True(t, s.Snapshot().Custom.Contains("approved"))
	assert.False(t, s.OverlayContains("approved"))
	assert.True(t, s.OverlayContains("pending"))
}

func TestWordWhitelistedChecksAllSets(t *testing.T) {
	snap := &Snapshot{
		Blacklist:        NewSet(),
		Custom:           NewSet("a"),
		CustomOld:        NewSet("b"),
		Dictionary:       NewSet("c"),
		NicknamesSet:     NewSet("d"),
		RandomPrefixes:   NewSet("e"),
		RandomSuffixes:   NewSet("f"),
		SortedDatasets:   NewSet("g"),
		TrustedUsernames: NewSet("h"),
		Usernames:        NewSet("i"),
	}
	for _, w := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		assert.True(t, snap.WordWhitelisted(w), w)
	}
	assert.False(t, snap.WordWhitelisted("z"))
}
