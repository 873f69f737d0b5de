// Package engine implements the ad reconciliation core: it diffs a fresh
// scrape against the stored state for one (subscriber, term), classifies
// every listing as new, deleted, unchanged or resurrected, persists the
// resulting diff transactionally and reports the changes.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/retry"
)

// Store is the persistence the engine reconciles against.
type Store interface {
	ActiveTerms(ctx context.Context, subscriberID string) ([]domain.TrackedTerm, error)
	ActiveByTerm(ctx context.Context, subscriberID, termID string) ([]domain.StoredListing, error)
	DeletedByTerm(ctx context.Context, subscriberID, termID string) ([]domain.StoredListing, error)
	OwnedExternalIDs(ctx context.Context, subscriberID string) (map[string]bool, error)
	ApplyDiff(ctx context.Context, diff *domain.Diff) error
	TouchTerm(ctx context.Context, termID string, checkedAt time.Time) error
}

// Fetcher is the scraping capability, consumed as a black box.
type Fetcher interface {
	Fetch(ctx context.Context, term string) ([]domain.Listing, error)
}

// StatsRecorder receives check metrics. Recording is fire-and-forget.
type StatsRecorder interface {
	RecordCheck(ctx context.Context, duration time.Duration)
	RecordFound(ctx context.Context, term string, count int)
	RecordDeleted(ctx context.Context, term string, count int)
}

type Engine struct {
	store   Store
	fetcher Fetcher
	stats   StatsRecorder
	log     logger.Logger

	// persistRetry wraps every diff commit: lock/contention failures are
	// retried with backoff, anything else propagates as a hard error for
	// that term only.
	persistRetry retry.Policy

	now func() time.Time
}

func New(store Store, fetcher Fetcher, stats StatsRecorder, persistRetry retry.Policy, log logger.Logger) *Engine {
	return &Engine{
		store:        store,
		fetcher:      fetcher,
		stats:        stats,
		persistRetry: persistRetry,
		log:          log,
		now:          time.Now,
	}
}

// CheckSubscriber runs one reconciliation pass over all of a subscriber's
// active terms. Errors are isolated per term: a failing fetch or commit is
// logged and the remaining terms still proceed. The returned report
// aggregates every term's changes.
func (e *Engine) CheckSubscriber(ctx context.Context, subscriberID string) (*domain.ChangeReport, error) {
	start := e.now().UTC()
	report := domain.NewChangeReport(subscriberID, start)

	terms, err := e.store.ActiveTerms(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("load terms for %s: %w", subscriberID, err)
	}

	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		current, err := e.fetcher.Fetch(ctx, term.Term)
		if err != nil {
			e.log.Error("fetch failed, leaving term state unchanged",
				logger.String("subscriber", subscriberID),
				logger.String("term", term.Term),
				logger.Error(err))
			continue
		}

		termReport, err := e.ReconcileTerm(ctx, term, current)
		if err != nil {
			e.log.Error("reconciliation failed for term",
				logger.String("subscriber", subscriberID),
				logger.String("term", term.Term),
				logger.Error(err))
			continue
		}

		if n := len(termReport.Added); n > 0 {
			e.stats.RecordFound(ctx, term.Term, n)
		}
		if n := len(termReport.Removed); n > 0 {
			e.stats.RecordDeleted(ctx, term.Term, n)
		}
		report.Merge(termReport)
	}

	report.Duration = e.now().UTC().Sub(start)
	e.stats.RecordCheck(ctx, report.Duration)

	e.log.Info("subscriber check completed",
		logger.String("subscriber", subscriberID),
		logger.Int("terms", len(terms)),
		logger.Int("added", len(report.Added)),
		logger.Int("removed", len(report.Removed)),
		logger.Duration("duration", report.Duration))
	return report, nil
}

// ReconcileTerm diffs current against the stored state for one term and
// persists the classification:
//
//   - deleted-and-seen-again rows are resurrected (active + new again),
//   - unseen current listings become new rows, unless the subscriber
//     already owns the ad under any term (cross-term dedup),
//   - stored-but-unseen rows are soft-deleted,
//   - an empty scrape against non-empty state is treated as a suspected
//     transient fetch failure and changes nothing.
//
// The diff is committed in one transaction, retried on contention.
func (e *Engine) ReconcileTerm(ctx context.Context, term domain.TrackedTerm, current []domain.Listing) (*domain.ChangeReport, error) {
	checkedAt := e.now().UTC()
	report := domain.NewChangeReport(term.SubscriberID, checkedAt)

	active, err := e.store.ActiveByTerm(ctx, term.SubscriberID, term.ID)
	if err != nil {
		return nil, fmt.Errorf("load active listings: %w", err)
	}

	// Empty-result guard: scraping zero ads while we hold state for the
	// term smells like a transient source failure. A missed deletion is
	// recoverable next pass; a false mass-deletion is not worth it.
	if len(current) == 0 && len(active) > 0 {
		e.log.Warn("empty result for term with stored listings, skipping diff",
			logger.String("subscriber", term.SubscriberID),
			logger.String("term", term.Term),
			logger.Int("stored", len(active)))
		if err := e.store.TouchTerm(ctx, term.ID, checkedAt); err != nil {
			return nil, fmt.Errorf("touch term: %w", err)
		}
		return report, nil
	}

	deleted, err := e.store.DeletedByTerm(ctx, term.SubscriberID, term.ID)
	if err != nil {
		return nil, fmt.Errorf("load deleted listings: %w", err)
	}
	owned, err := e.store.OwnedExternalIDs(ctx, term.SubscriberID)
	if err != nil {
		return nil, fmt.Errorf("load owned ids: %w", err)
	}

	currentByID := make(map[string]domain.Listing, len(current))
	for _, l := range current {
		currentByID[l.ExternalID] = l
	}

	diff := &domain.Diff{
		SubscriberID: term.SubscriberID,
		TermID:       term.ID,
		CheckedAt:    checkedAt,
	}

	// Resurrection: soft-deleted rows observed again come back as new.
	// To the subscriber a resurrected ad is indistinguishable from a new one.
	for _, row := range deleted {
		cur, ok := currentByID[row.ExternalID]
		if !ok {
			continue
		}
		row.Refresh(cur)
		row.IsDeleted = false
		row.DeletedAt = nil
		row.IsNew = true
		markedAt := checkedAt
		row.MarkedNewAt = &markedAt

		diff.Resurrected = append(diff.Resurrected, row)
		report.Added = append(report.Added, domain.Change{Term: term.Term, Listing: cur})
	}

	// New listings: anything current the subscriber does not own yet.
	// owned covers this term's active and deleted rows as well as every
	// other term's, so this is also the cross-term dedup. Marking each
	// taken ID collapses repeats within one scrape (promoted ads show up
	// on several result pages) to a single row.
	for _, cur := range current {
		if owned[cur.ExternalID] {
			continue
		}
		owned[cur.ExternalID] = true
		diff.Created = append(diff.Created, e.newStoredListing(term, cur, true, checkedAt))
		report.Added = append(report.Added, domain.Change{Term: term.Term, Listing: cur})
	}

	// Deletions: active rows no longer observed. is_new stays untouched.
	for _, row := range active {
		if _, ok := currentByID[row.ExternalID]; ok {
			continue
		}
		diff.SoftDeleted = append(diff.SoftDeleted, row.ID)
		report.Removed = append(report.Removed, domain.Change{Term: term.Term, Listing: row.AsListing()})
	}

	if err := e.applyDiff(ctx, diff); err != nil {
		return nil, err
	}

	if !report.Empty() {
		report.MarkTerm(term.Term)
	}
	return report, nil
}

// SeedTerm stores the initial result set for a freshly added term without
// marking anything new, so subscribing does not trigger a notification storm
// for ads that were already on the site.
func (e *Engine) SeedTerm(ctx context.Context, term domain.TrackedTerm) (int, error) {
	current, err := e.fetcher.Fetch(ctx, term.Term)
	if err != nil {
		return 0, fmt.Errorf("initial fetch for %q: %w", term.Term, err)
	}

	owned, err := e.store.OwnedExternalIDs(ctx, term.SubscriberID)
	if err != nil {
		return 0, fmt.Errorf("load owned ids: %w", err)
	}

	checkedAt := e.now().UTC()
	diff := &domain.Diff{
		SubscriberID: term.SubscriberID,
		TermID:       term.ID,
		CheckedAt:    checkedAt,
	}
	for _, cur := range current {
		if owned[cur.ExternalID] {
			continue
		}
		owned[cur.ExternalID] = true
		diff.Created = append(diff.Created, e.newStoredListing(term, cur, false, checkedAt))
	}

	// Seeding is not a check; with nothing to store there is nothing to
	// commit, and last_checked_at stays unset until the first real pass.
	if diff.Empty() {
		return 0, nil
	}
	if err := e.applyDiff(ctx, diff); err != nil {
		return 0, err
	}

	e.log.Info("seeded term with initial listings",
		logger.String("subscriber", term.SubscriberID),
		logger.String("term", term.Term),
		logger.Int("stored", len(diff.Created)))
	return len(diff.Created), nil
}

func (e *Engine) applyDiff(ctx context.Context, diff *domain.Diff) error {
	err := e.persistRetry.Do(ctx, "apply diff", func() error {
		return e.store.ApplyDiff(ctx, diff)
	})
	if err != nil {
		return fmt.Errorf("persist diff for term %s: %w", diff.TermID, err)
	}
	return nil
}

func (e *Engine) newStoredListing(term domain.TrackedTerm, l domain.Listing, markNew bool, now time.Time) domain.StoredListing {
	row := domain.StoredListing{
		ID:           uuid.NewString(),
		SubscriberID: term.SubscriberID,
		TermID:       term.ID,
		ExternalID:   l.ExternalID,
		Title:        l.Title,
		Description:  l.Description,
		Price:        l.Price,
		Location:     l.Location,
		SellerName:   l.SellerName,
		Link:         l.Link,
		ImageURL:     l.ImageURL,
		PostedAtRaw:  l.PostedAtRaw,
		PostedAt:     l.PostedAt,
		ScrapedAt:    now,
		IsNew:        markNew,
	}
	if markNew {
		markedAt := now
		row.MarkedNewAt = &markedAt
	}
	return row
}
