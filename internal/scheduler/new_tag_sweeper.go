package scheduler

import (
	"context"
	"time"

	"github.com/mkrenek/adwatch/internal/logger"
)

// NewTagStore clears expired is_new flags.
type NewTagStore interface {
	ClearExpiredNewTags(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewTagSweeper periodically drops the "new" tag from listings whose window
// has elapsed. The clear is monotonic, so running it more or less often only
// changes how stale the tag can get, never its correctness.
type NewTagSweeper struct {
	store    NewTagStore
	logger   logger.Logger
	interval time.Duration
	window   time.Duration
	stopCh   chan struct{}
}

func NewNewTagSweeper(store NewTagStore, log logger.Logger, interval, window time.Duration) *NewTagSweeper {
	return &NewTagSweeper{
		store:    store,
		logger:   log,
		interval: interval,
		window:   window,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic expiry process.
func (ts *NewTagSweeper) Start(ctx context.Context) error {
	// Run immediately on start
	if err := ts.Sweep(ctx); err != nil {
		ts.logger.Warn("initial new-tag sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(ts.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ts.Sweep(ctx); err != nil {
					ts.logger.Error("new-tag sweep failed", logger.Error(err))
				}
			case <-ts.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper.
func (ts *NewTagSweeper) Stop() {
	close(ts.stopCh)
}

// Sweep clears the new tag on every listing marked new before now-window.
func (ts *NewTagSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-ts.window)
	cleared, err := ts.store.ClearExpiredNewTags(ctx, cutoff)
	if err != nil {
		return err
	}
	if cleared > 0 {
		ts.logger.Info("expired new tags cleared",
			logger.Int64("cleared", cleared),
			logger.Duration("window", ts.window))
	} else {
		ts.logger.Debug("no new tags to expire")
	}
	return nil
}
