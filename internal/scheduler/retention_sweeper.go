package scheduler

import (
	"context"
	"time"

	"github.com/mkrenek/adwatch/internal/logger"
)

// RetentionStore hard-deletes listings past their retention window.
type RetentionStore interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper permanently removes listings that have been soft-deleted
// for longer than the retention window. Until then they stay queryable and
// eligible for resurrection.
type RetentionSweeper struct {
	store     RetentionStore
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

func NewRetentionSweeper(store RetentionStore, log logger.Logger, interval, retention time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		store:     store,
		logger:    log,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic purge process.
func (rs *RetentionSweeper) Start(ctx context.Context) error {
	// Run immediately on start
	if err := rs.Sweep(ctx); err != nil {
		rs.logger.Warn("initial retention sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(rs.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rs.Sweep(ctx); err != nil {
					rs.logger.Error("retention sweep failed", logger.Error(err))
				}
			case <-rs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper.
func (rs *RetentionSweeper) Stop() {
	close(rs.stopCh)
}

// Sweep purges listings soft-deleted before now-retention.
func (rs *RetentionSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-rs.retention)
	purged, err := rs.store.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		rs.logger.Info("retention purge completed",
			logger.Int64("purged", purged),
			logger.Duration("retention", rs.retention))
	} else {
		rs.logger.Debug("no listings past retention")
	}
	return nil
}
