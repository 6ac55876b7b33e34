// SPDX-License-Identifier: MIT

// Package jobs holds the periodic background work: mirroring the central
// dataset and reloading it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ManuGH/censord/internal/dataset"
	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/metrics"
	"github.com/ManuGH/censord/internal/sftpsync"
)

// Mirrorer downloads the remote dataset tree into a local directory.
type Mirrorer interface {
	Mirror(ctx context.Context, localRoot string) (int, error)
}

// SyncConfig carries the collaborators for one sync run.
type SyncConfig struct {
	Mirror   Mirrorer
	Datasets *dataset.Store
}

// SyncStatus summarizes a completed sync run.
type SyncStatus struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	FilesDownloaded int           `json:"files_downloaded"`
	DatasetVersion  uint64        `json:"dataset_version"`
}

// Sync mirrors the remote dataset and reloads the snapshot. On mirror failure
// the previous data keeps serving; nothing is reloaded.
func Sync(ctx context.Context, cfg SyncConfig) (*SyncStatus, error) {
	start := time.Now()

	n, err := cfg.Mirror.Mirror(ctx, cfg.Datasets.Paths().Remote)
	if err != nil {
		stage := "mirror"
		if errors.Is(err, sftpsync.ErrConnect) {
			stage = "connect"
		}
		metrics.IncSyncFailure(stage)
		return nil, fmt.Errorf("mirror: %w", err)
	}

	if n > 0 {
		if err := cfg.Datasets.Reload(); err != nil {
			metrics.IncSyncFailure("load")
			return nil, fmt.Errorf("reload: %w", err)
		}
	}

	status := &SyncStatus{
		StartedAt:       start,
		Duration:        time.Since(start),
		FilesDownloaded: n,
		DatasetVersion:  cfg.Datasets.Version(),
	}
	metrics.ObserveSyncDuration(status.Duration.Seconds())
	return status, nil
}

// Runner serializes sync runs: the ticker loop and the manual trigger share
// one in-flight slot.
type Runner struct {
	cfg     SyncConfig
	running atomic.Bool
	last    atomic.Pointer[SyncStatus]
}

// ErrSyncInProgress is returned when a run is already in flight.
var ErrSyncInProgress = errors.New("sync already in progress")

func NewRunner(cfg SyncConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Trigger runs one sync if none is in flight.
func (r *Runner) Trigger(ctx context.Context) (*SyncStatus, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer r.running.Store(false)

	status, err := Sync(ctx, r.cfg)
	if err != nil {
		return nil, err
	}
	r.last.Store(status)
	return status, nil
}

// Last returns the most recent successful run, or nil.
func (r *Runner) Last() *SyncStatus { return r.last.Load() }

// Run syncs once immediately and then on every tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	logger := log.WithComponent("jobs")

	runOnce := func() {
		status, err := r.Trigger(ctx)
		switch {
		case errors.Is(err, ErrSyncInProgress):
			logger.Debug().Msg("sync tick skipped, run in flight")
		case err != nil:
			logger.Error().Err(err).Msg("dataset sync failed")
		default:
			logger.Info().
				Int("files", status.FilesDownloaded).
				Uint64("dataset_version", status.DatasetVersion).
				Dur("duration", status.Duration).
				Msg("dataset sync complete")
		}
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}
