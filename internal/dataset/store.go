// SPDX-License-Identifier: MIT

package dataset

import (
	"fmt"
	"sync"

	"github.com/ManuGH/censord/internal/metrics"
)

// Overlay index names for push-approved entries.
const (
	OverlayCustom    = "custom"
	OverlayUsernames = "usernames"
)

// Store serves the current dataset Snapshot plus an in-memory overlay of
// entries approved by the central server since the last mirror sync.
// Snapshots are swapped whole; readers never see a half-loaded state.
type Store struct {
	paths Paths

	mu      sync.RWMutex
	snap    *Snapshot
	version uint64
	overlay map[string]Set
}

// NewStore ensures the on-disk layout and performs the initial load.
func NewStore(paths Paths) (*Store, error) {
	if err := EnsureFiles(paths); err != nil {
		return nil, err
	}
	s := &Store{
		paths: paths,
		overlay: map[string]Set{
			OverlayCustom:    make(Set),
			OverlayUsernames: make(Set),
		},
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Paths returns the store's on-disk layout.
func (s *Store) Paths() Paths { return s.paths }

// Reload re-reads all dataset files and swaps the snapshot in. On error the
// previous snapshot keeps serving. Overlay entries now present in the fresh
// snapshot are dropped; the mirror is the source of truth once it catches up.
func (s *Store) Reload() error {
	snap, err := Load(s.paths)
	if err != nil {
		return fmt.Errorf("dataset load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	snap.Version = s.version
	s.snap = snap
	for member := range s.overlay[OverlayCustom] {
		if snap.Custom.Contains(member) {
			delete(s.overlay[OverlayCustom], member)
		}
	}
	for member := range s.overlay[OverlayUsernames] {
		if snap.Usernames.Contains(member) {
			delete(s.overlay[OverlayUsernames], member)
		}
	}
	metrics.RecordDatasetVersion(s.version)
	return nil
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// AddOverlay records a push-approved entry under the given index
// (OverlayCustom or OverlayUsernames). Unknown indexes are an error so a
// protocol change on the server side fails loudly.
func (s *Store) AddOverlay(index, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.overlay[index]
	if !ok {
		return fmt.Errorf("unknown overlay index %q", index)
	}
	set.Add(member)
	return nil
}

// OverlayContains reports whether member is in the overlay for any index.
func (s *Store) OverlayContains(member string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, set := range s.overlay {
		if set.Contains(member) {
			return true
		}
	}
	return false
}

// OverlaySizes returns entry counts per overlay index, for status reporting.
func (s *Store) OverlaySizes() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sizes := make(map[string]int, len(s.overlay))
	for index, set := range s.overlay {
		sizes[index] = set.Len()
	}
	return sizes
}

// Version returns the current snapshot version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
