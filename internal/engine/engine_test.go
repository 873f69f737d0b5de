package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/retry"
)

var errContention = errors.New("lock contention")

// fakeStore is an in-memory Store with scriptable ApplyDiff failures.
type fakeStore struct {
	terms    []domain.TrackedTerm
	listings map[string]*domain.StoredListing // row ID -> row

	applyErrs  []error // consumed before ApplyDiff succeeds
	applyCalls int
	touched    []string
}

func newFakeStore(terms ...domain.TrackedTerm) *fakeStore {
	return &fakeStore{
		terms:    terms,
		listings: make(map[string]*domain.StoredListing),
	}
}

func (f *fakeStore) add(row domain.StoredListing) {
	f.listings[row.ID] = &row
}

func (f *fakeStore) byExternalID(externalID string) *domain.StoredListing {
	for _, row := range f.listings {
		if row.ExternalID == externalID {
			return row
		}
	}
	return nil
}

func (f *fakeStore) ActiveTerms(_ context.Context, subscriberID string) ([]domain.TrackedTerm, error) {
	var out []domain.TrackedTerm
	for _, t := range f.terms {
		if t.SubscriberID == subscriberID && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveByTerm(_ context.Context, subscriberID, termID string) ([]domain.StoredListing, error) {
	return f.byTerm(subscriberID, termID, false), nil
}

func (f *fakeStore) DeletedByTerm(_ context.Context, subscriberID, termID string) ([]domain.StoredListing, error) {
	return f.byTerm(subscriberID, termID, true), nil
}

func (f *fakeStore) byTerm(subscriberID, termID string, deleted bool) []domain.StoredListing {
	var out []domain.StoredListing
	for _, row := range f.listings {
		if row.SubscriberID == subscriberID && row.TermID == termID && row.IsDeleted == deleted {
			out = append(out, *row)
		}
	}
	return out
}

func (f *fakeStore) OwnedExternalIDs(_ context.Context, subscriberID string) (map[string]bool, error) {
	owned := make(map[string]bool)
	for _, row := range f.listings {
		if row.SubscriberID == subscriberID {
			owned[row.ExternalID] = true
		}
	}
	return owned, nil
}

func (f *fakeStore) ApplyDiff(_ context.Context, diff *domain.Diff) error {
	f.applyCalls++
	if len(f.applyErrs) > 0 {
		err := f.applyErrs[0]
		f.applyErrs = f.applyErrs[1:]
		return err
	}
	for _, row := range diff.Created {
		f.add(row)
	}
	for _, row := range diff.Resurrected {
		f.add(row)
	}
	for _, id := range diff.SoftDeleted {
		row := f.listings[id]
		row.IsDeleted = true
		deletedAt := diff.CheckedAt
		row.DeletedAt = &deletedAt
	}
	return nil
}

func (f *fakeStore) TouchTerm(_ context.Context, termID string, _ time.Time) error {
	f.touched = append(f.touched, termID)
	return nil
}

type fakeFetcher struct {
	results map[string][]domain.Listing
	errs    map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, term string) ([]domain.Listing, error) {
	if err := f.errs[term]; err != nil {
		return nil, err
	}
	return f.results[term], nil
}

type nopStats struct{}

func (nopStats) RecordCheck(context.Context, time.Duration) {}
func (nopStats) RecordFound(context.Context, string, int)   {}
func (nopStats) RecordDeleted(context.Context, string, int) {}

func testTerm(subscriberID, term string) domain.TrackedTerm {
	return domain.TrackedTerm{
		ID:           "term-" + term,
		SubscriberID: subscriberID,
		Term:         term,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}

func listing(id string) domain.Listing {
	return domain.Listing{
		ExternalID: id,
		Title:      "listing " + id,
		Link:       "https://bazos.example/inzerat/" + id,
		ObservedAt: time.Now().UTC(),
	}
}

func storedRow(term domain.TrackedTerm, externalID string, isDeleted bool) domain.StoredListing {
	row := domain.StoredListing{
		ID:           "row-" + term.Term + "-" + externalID,
		SubscriberID: term.SubscriberID,
		TermID:       term.ID,
		ExternalID:   externalID,
		Title:        "listing " + externalID,
		ScrapedAt:    time.Now().UTC().Add(-time.Hour),
		IsDeleted:    isDeleted,
	}
	if isDeleted {
		deletedAt := time.Now().UTC().Add(-time.Hour)
		row.DeletedAt = &deletedAt
	}
	return row
}

func newTestEngine(store *fakeStore, fetcher Fetcher) *Engine {
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errContention) },
	}
	return New(store, fetcher, nopStats{}, policy, logger.New("error", false))
}

func addedIDs(r *domain.ChangeReport) []string {
	var ids []string
	for _, c := range r.Added {
		ids = append(ids, c.Listing.ExternalID)
	}
	return ids
}

func removedIDs(r *domain.ChangeReport) []string {
	var ids []string
	for _, c := range r.Removed {
		ids = append(ids, c.Listing.ExternalID)
	}
	return ids
}

func TestReconcileAddsAndRemoves(t *testing.T) {
	// previous={1,2,3}, current={2,3,4} -> added={4}, removed={1}
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	for _, id := range []string{"1", "2", "3"} {
		store.add(storedRow(term, id, false))
	}
	eng := newTestEngine(store, nil)

	report, err := eng.ReconcileTerm(context.Background(), term,
		[]domain.Listing{listing("2"), listing("3"), listing("4")})
	if err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}

	if got := addedIDs(report); len(got) != 1 || got[0] != "4" {
		t.Errorf("added = %v, want [4]", got)
	}
	if got := removedIDs(report); len(got) != 1 || got[0] != "1" {
		t.Errorf("removed = %v, want [1]", got)
	}
	if got := report.Terms; len(got) != 1 || got[0] != "kolo" {
		t.Errorf("terms = %v, want [kolo]", got)
	}

	if row := store.byExternalID("1"); !row.IsDeleted {
		t.Error("listing 1 not soft-deleted")
	}
	if row := store.byExternalID("4"); row == nil || !row.IsNew || row.MarkedNewAt == nil {
		t.Errorf("listing 4 = %+v, want stored as new", row)
	}
	if row := store.byExternalID("2"); row.IsDeleted {
		t.Error("unchanged listing 2 was touched")
	}
}

func TestReconcileEmptyAgainstEmpty(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	eng := newTestEngine(store, nil)

	report, err := eng.ReconcileTerm(context.Background(), term, nil)
	if err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}
	if !report.Empty() {
		t.Errorf("report = %+v, want empty", report)
	}
	// No guard here: empty against empty is a legitimate no-op pass, the
	// diff still commits to stamp last_checked_at.
	if store.applyCalls != 1 {
		t.Errorf("applyCalls = %d, want 1", store.applyCalls)
	}
}

func TestReconcileResurrection(t *testing.T) {
	// previous={5} soft-deleted, current={5} -> added={5}, active+new again
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	store.add(storedRow(term, "5", true))
	eng := newTestEngine(store, nil)

	fresh := listing("5")
	fresh.Price = "999 Kč"
	report, err := eng.ReconcileTerm(context.Background(), term, []domain.Listing{fresh})
	if err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}

	if got := addedIDs(report); len(got) != 1 || got[0] != "5" {
		t.Errorf("added = %v, want [5]", got)
	}
	if len(report.Removed) != 0 {
		t.Errorf("removed = %v, want none", removedIDs(report))
	}

	row := store.byExternalID("5")
	if row.IsDeleted {
		t.Error("resurrected listing still marked deleted")
	}
	if !row.IsNew || row.MarkedNewAt == nil {
		t.Error("resurrected listing not marked new")
	}
	if row.DeletedAt != nil {
		t.Error("resurrected listing kept its deleted_at")
	}
	if row.Price != "999 Kč" {
		t.Errorf("display attributes not refreshed, price = %q", row.Price)
	}
}

func TestReconcileEmptyResultGuard(t *testing.T) {
	// previous={7,8}, current={} -> nothing marked deleted, zero changes
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	store.add(storedRow(term, "7", false))
	store.add(storedRow(term, "8", false))
	eng := newTestEngine(store, nil)

	report, err := eng.ReconcileTerm(context.Background(), term, nil)
	if err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}
	if !report.Empty() {
		t.Errorf("report = %+v, want empty", report)
	}
	if store.applyCalls != 0 {
		t.Errorf("applyCalls = %d, want 0 (guard must skip the diff)", store.applyCalls)
	}
	for _, id := range []string{"7", "8"} {
		if store.byExternalID(id).IsDeleted {
			t.Errorf("listing %s falsely deleted on empty result", id)
		}
	}
	if len(store.touched) != 1 || store.touched[0] != term.ID {
		t.Errorf("touched = %v, want the guarded term's last_checked_at stamped", store.touched)
	}
}

func TestReconcileIdempotence(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	eng := newTestEngine(store, nil)

	current := []domain.Listing{listing("1"), listing("2")}
	first, err := eng.ReconcileTerm(context.Background(), term, current)
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if len(first.Added) != 2 {
		t.Fatalf("first pass added = %v, want 2 entries", addedIDs(first))
	}

	second, err := eng.ReconcileTerm(context.Background(), term, current)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if !second.Empty() {
		t.Errorf("second pass = added %v removed %v, want no changes",
			addedIDs(second), removedIDs(second))
	}
}

func TestReconcileDoesNotReviveClearedNewTag(t *testing.T) {
	// Once the expiry sweep clears is_new, an unchanged listing must stay
	// not-new through further passes; only resurrection or creation set it.
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	row := storedRow(term, "1", false)
	row.IsNew = false
	store.add(row)
	eng := newTestEngine(store, nil)

	if _, err := eng.ReconcileTerm(context.Background(), term, []domain.Listing{listing("1")}); err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}
	if store.byExternalID("1").IsNew {
		t.Error("unchanged listing had is_new set true again")
	}
}

func TestReconcileCollapsesRepeatedScrapeEntries(t *testing.T) {
	// Promoted ads repeat across result pages; the scrape is a set, one
	// repeated external ID must yield exactly one row and one report entry.
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	eng := newTestEngine(store, nil)

	report, err := eng.ReconcileTerm(context.Background(), term,
		[]domain.Listing{listing("1"), listing("1"), listing("2")})
	if err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}

	if got := addedIDs(report); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("added = %v, want [1 2]", got)
	}
	count := 0
	for _, row := range store.listings {
		if row.ExternalID == "1" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("listing 1 stored %d times, want 1", count)
	}
}

func TestSeedTermCollapsesRepeatedScrapeEntries(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	fetcher := &fakeFetcher{
		results: map[string][]domain.Listing{"kolo": {listing("1"), listing("1")}},
	}
	eng := newTestEngine(store, fetcher)

	n, err := eng.SeedTerm(context.Background(), term)
	if err != nil {
		t.Fatalf("SeedTerm failed: %v", err)
	}
	if n != 1 {
		t.Errorf("seeded = %d, want 1", n)
	}
}

func TestReconcileCrossTermDedup(t *testing.T) {
	// X active under term1; X appears in term2's scrape -> not duplicated,
	// not reported as new again.
	term1 := testTerm("alice", "kolo")
	term2 := testTerm("alice", "bicykl")
	store := newFakeStore(term1, term2)
	store.add(storedRow(term1, "X", false))
	eng := newTestEngine(store, nil)

	report, err := eng.ReconcileTerm(context.Background(), term2, []domain.Listing{listing("X")})
	if err != nil {
		t.Fatalf("ReconcileTerm failed: %v", err)
	}
	if !report.Empty() {
		t.Errorf("report = added %v, want empty", addedIDs(report))
	}

	count := 0
	for _, row := range store.listings {
		if row.ExternalID == "X" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("listing X stored %d times, want 1", count)
	}
	if store.byExternalID("X").TermID != term1.ID {
		t.Error("listing X moved away from the term that discovered it")
	}
}

func TestReconcileRetriesContention(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	store.applyErrs = []error{errContention, errContention}
	eng := newTestEngine(store, nil)

	report, err := eng.ReconcileTerm(context.Background(), term, []domain.Listing{listing("1")})
	if err != nil {
		t.Fatalf("ReconcileTerm failed after retryable errors: %v", err)
	}
	if store.applyCalls != 3 {
		t.Errorf("applyCalls = %d, want 3", store.applyCalls)
	}
	if len(report.Added) != 1 {
		t.Errorf("added = %v, want [1]", addedIDs(report))
	}
	if store.byExternalID("1") == nil {
		t.Error("diff not committed after retries")
	}
}

func TestReconcileGivesUpOnHardError(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	store.applyErrs = []error{errors.New("constraint violation")}
	eng := newTestEngine(store, nil)

	_, err := eng.ReconcileTerm(context.Background(), term, []domain.Listing{listing("1")})
	if err == nil {
		t.Fatal("expected hard error to propagate")
	}
	if store.applyCalls != 1 {
		t.Errorf("applyCalls = %d, want 1 (no retries on integrity errors)", store.applyCalls)
	}
}

func TestCheckSubscriberIsolatesFailingTerm(t *testing.T) {
	term1 := testTerm("alice", "kolo")
	term2 := testTerm("alice", "stul")
	store := newFakeStore(term1, term2)
	fetcher := &fakeFetcher{
		results: map[string][]domain.Listing{"stul": {listing("9")}},
		errs:    map[string]error{"kolo": fmt.Errorf("connection reset")},
	}
	eng := newTestEngine(store, fetcher)

	report, err := eng.CheckSubscriber(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CheckSubscriber failed: %v", err)
	}
	if got := addedIDs(report); len(got) != 1 || got[0] != "9" {
		t.Errorf("added = %v, want the healthy term's listing only", got)
	}
	if got := report.Terms; len(got) != 1 || got[0] != "stul" {
		t.Errorf("terms = %v, want [stul]", got)
	}
}

func TestCheckSubscriberStopsBetweenTermsOnCancel(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newTestEngine(store, &fakeFetcher{})
	if _, err := eng.CheckSubscriber(ctx, "alice"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSeedTermStoresWithoutNewTag(t *testing.T) {
	term := testTerm("alice", "kolo")
	store := newFakeStore(term)
	fetcher := &fakeFetcher{
		results: map[string][]domain.Listing{"kolo": {listing("1"), listing("2")}},
	}
	eng := newTestEngine(store, fetcher)

	n, err := eng.SeedTerm(context.Background(), term)
	if err != nil {
		t.Fatalf("SeedTerm failed: %v", err)
	}
	if n != 2 {
		t.Errorf("seeded = %d, want 2", n)
	}
	for _, id := range []string{"1", "2"} {
		row := store.byExternalID(id)
		if row == nil {
			t.Fatalf("listing %s not stored", id)
		}
		if row.IsNew || row.MarkedNewAt != nil {
			t.Errorf("seeded listing %s marked new", id)
		}
	}
}
