// SPDX-License-Identifier: MIT

package dataset

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/censord/internal/log"
)

// Watch reloads the store when files under the mirror directory change.
// Events are debounced so a multi-file sync triggers a single reload.
// Blocks until ctx is cancelled.
func Watch(ctx context.Context, store *Store) error {
	logger := log.WithComponent("dataset")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("failed to close dataset watcher")
		}
	}()

	paths := store.Paths()
	for _, dir := range []string{paths.Remote, paths.SortedDir()} {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timerC
				}
				timer.Reset(debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if err := store.Reload(); err != nil {
				logger.Error().
					Err(err).
					Str("event", "dataset.reload_failed").
					Msg("dataset reload after file change failed, keeping previous snapshot")
				continue
			}
			logger.Info().
				Str("event", "dataset.reloaded").
				Uint64("dataset_version", store.Version()).
				Msg("dataset reloaded after file change")
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(werr).Msg("dataset watcher error")
		}
	}
}
