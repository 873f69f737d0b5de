package domain

import "time"

// Diff is the set of persisted mutations one reconciliation pass computed
// for a single (subscriber, term). It must be applied atomically: a
// half-committed diff would desynchronize the stored state from the report
// already handed to the caller.
type Diff struct {
	SubscriberID string
	TermID       string
	CheckedAt    time.Time

	// Created are brand-new rows to insert.
	Created []StoredListing
	// Resurrected are existing rows flipped back to active and new, with
	// display attributes refreshed from the current scrape.
	Resurrected []StoredListing
	// SoftDeleted holds row IDs to mark deleted. is_new is left untouched.
	SoftDeleted []string
}

func (d *Diff) Empty() bool {
	return len(d.Created) == 0 && len(d.Resurrected) == 0 && len(d.SoftDeleted) == 0
}
