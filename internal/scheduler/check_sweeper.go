// Package scheduler runs the periodic background jobs: the reconciliation
// sweep over all subscribers, the is_new tag expiry and the retention purge.
package scheduler

import (
	"context"
	"time"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/singleflight"
)

// Checker runs one reconciliation pass for a subscriber.
type Checker interface {
	CheckSubscriber(ctx context.Context, subscriberID string) (*domain.ChangeReport, error)
}

// SubscriberSource lists the subscribers that currently track any term.
type SubscriberSource interface {
	ActiveSubscribers(ctx context.Context) ([]string, error)
}

// Notifier delivers a non-empty change report to its subscriber.
type Notifier interface {
	Publish(ctx context.Context, report *domain.ChangeReport) error
}

// CheckSweeper drives the reconciliation sweep. Sweeps run on an interval
// and on manual triggers; the guard ensures only one runs at a time, a
// trigger arriving mid-sweep is dropped.
type CheckSweeper struct {
	checker       Checker
	subscribers   SubscriberSource
	notifier      Notifier
	guard         *singleflight.Guard
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewCheckSweeper(
	checker Checker,
	subscribers SubscriberSource,
	notifier Notifier,
	guard *singleflight.Guard,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *CheckSweeper {
	return &CheckSweeper{
		checker:       checker,
		subscribers:   subscribers,
		notifier:      notifier,
		guard:         guard,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic sweep process.
func (cs *CheckSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(cs.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cs.Sweep(ctx)
			case <-cs.manualTrigger:
				cs.logger.Info("manual check sweep triggered")
				cs.Sweep(ctx)
			case <-cs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper.
func (cs *CheckSweeper) Stop() {
	close(cs.stopCh)
}

// Sweep checks every subscriber sequentially and publishes the resulting
// reports. If a sweep is already in flight this one is skipped entirely,
// never queued: the next tick covers whatever this pass would have seen.
func (cs *CheckSweeper) Sweep(ctx context.Context) {
	if !cs.guard.TryAcquire() {
		cs.logger.Warn("check sweep already running, skipping")
		return
	}
	defer cs.guard.Release()

	start := time.Now()
	subscribers, err := cs.subscribers.ActiveSubscribers(ctx)
	if err != nil {
		cs.logger.Error("failed to list subscribers", logger.Error(err))
		return
	}
	if len(subscribers) == 0 {
		cs.logger.Debug("no subscribers to check")
		return
	}

	checked := 0
	for _, subscriberID := range subscribers {
		if ctx.Err() != nil {
			cs.logger.Warn("check sweep interrupted",
				logger.Int("checked", checked),
				logger.Int("total", len(subscribers)))
			return
		}

		report, err := cs.checker.CheckSubscriber(ctx, subscriberID)
		if err != nil {
			cs.logger.Error("subscriber check failed",
				logger.String("subscriber", subscriberID),
				logger.Error(err))
			continue
		}
		checked++

		if report.Empty() {
			continue
		}
		if err := cs.notifier.Publish(ctx, report); err != nil {
			cs.logger.Warn("failed to publish change report",
				logger.String("subscriber", subscriberID),
				logger.Error(err))
		}
	}

	cs.logger.Info("check sweep completed",
		logger.Int("subscribers", checked),
		logger.Duration("duration", time.Since(start)))
}
