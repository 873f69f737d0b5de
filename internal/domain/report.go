package domain

import (
	"sort"
	"time"
)

// Change is one listing-level event, tagged with the term whose check
// produced it.
type Change struct {
	Term    string  `json:"term"`
	Listing Listing `json:"listing"`
}

// ChangeReport is the output of one reconciliation pass. Added covers both
// brand-new and resurrected listings; the two are indistinguishable to the
// subscriber. Removed covers listings newly marked deleted.
type ChangeReport struct {
	EventID      string        `json:"event_id,omitempty"`
	SubscriberID string        `json:"subscriber"`
	Added        []Change      `json:"added"`
	Removed      []Change      `json:"removed"`
	Terms        []string      `json:"terms"`
	CheckedAt    time.Time     `json:"checked_at"`
	Duration     time.Duration `json:"-"`
}

func NewChangeReport(subscriberID string, checkedAt time.Time) *ChangeReport {
	return &ChangeReport{
		SubscriberID: subscriberID,
		CheckedAt:    checkedAt,
	}
}

// Empty reports whether the pass produced no changes at all.
func (r *ChangeReport) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// MarkTerm records term as affected. Terms stays sorted and deduplicated so
// reports compare stably in tests and read stably in events.
func (r *ChangeReport) MarkTerm(term string) {
	i := sort.SearchStrings(r.Terms, term)
	if i < len(r.Terms) && r.Terms[i] == term {
		return
	}
	r.Terms = append(r.Terms, "")
	copy(r.Terms[i+1:], r.Terms[i:])
	r.Terms[i] = term
}

// Merge folds another report (typically a single term's) into r.
func (r *ChangeReport) Merge(other *ChangeReport) {
	if other == nil {
		return
	}
	r.Added = append(r.Added, other.Added...)
	r.Removed = append(r.Removed, other.Removed...)
	for _, t := range other.Terms {
		r.MarkTerm(t)
	}
}
