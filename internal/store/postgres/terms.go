package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrenek/adwatch/internal/domain"
)

var ErrTermNotFound = errors.New("tracked term not found")

const termColumns = "id, subscriber_id, term, active, created_at, last_checked_at"

// AddTerm registers a search term for a subscriber. A previously deactivated
// term is reactivated instead of duplicated; an already-active term is
// returned as-is. created reports whether a brand-new row was inserted, so
// the caller knows to seed the term's initial listings.
func (s *Store) AddTerm(ctx context.Context, subscriberID, term string) (domain.TrackedTerm, bool, error) {
	var existing domain.TrackedTerm
	err := s.db.GetContext(ctx, &existing,
		`SELECT `+termColumns+` FROM tracked_terms WHERE subscriber_id = $1 AND term = $2`,
		subscriberID, term)
	switch {
	case err == nil:
		if existing.Active {
			return existing, false, nil
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE tracked_terms SET active = TRUE WHERE id = $1`, existing.ID); err != nil {
			return domain.TrackedTerm{}, false, fmt.Errorf("reactivate term: %w", err)
		}
		existing.Active = true
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return domain.TrackedTerm{}, false, fmt.Errorf("lookup term: %w", err)
	}

	t := domain.TrackedTerm{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		Term:         term,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_terms (id, subscriber_id, term, active, created_at) VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.SubscriberID, t.Term, t.Active, t.CreatedAt); err != nil {
		return domain.TrackedTerm{}, false, fmt.Errorf("insert term: %w", err)
	}
	return t, true, nil
}

// RemoveTerm deactivates a term. Deactivation is logical: the term's
// listings are soft-deleted along with it, history stays around for the
// retention sweep to deal with.
func (s *Store) RemoveTerm(ctx context.Context, subscriberID, term string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE tracked_terms SET active = FALSE WHERE subscriber_id = $1 AND term = $2 AND active`,
		subscriberID, term)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("deactivate term: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if n == 0 {
		tx.Rollback()
		return ErrTermNotFound
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE stored_listings SET is_deleted = TRUE, deleted_at = now()
WHERE subscriber_id = $1
  AND term_id = (SELECT id FROM tracked_terms WHERE subscriber_id = $1 AND term = $2)
  AND NOT is_deleted`,
		subscriberID, term); err != nil {
		tx.Rollback()
		return fmt.Errorf("soft-delete term listings: %w", err)
	}

	return tx.Commit()
}

// ActiveTerms returns a subscriber's active terms, oldest first.
func (s *Store) ActiveTerms(ctx context.Context, subscriberID string) ([]domain.TrackedTerm, error) {
	terms := []domain.TrackedTerm{}
	err := s.db.SelectContext(ctx, &terms,
		`SELECT `+termColumns+` FROM tracked_terms WHERE subscriber_id = $1 AND active ORDER BY created_at`,
		subscriberID)
	return terms, err
}

// ActiveSubscribers returns every subscriber with at least one active term.
func (s *Store) ActiveSubscribers(ctx context.Context) ([]string, error) {
	subs := []string{}
	err := s.db.SelectContext(ctx, &subs,
		`SELECT DISTINCT subscriber_id FROM tracked_terms WHERE active ORDER BY subscriber_id`)
	return subs, err
}

// TouchTerm updates only last_checked_at, used when the empty-result guard
// skips the rest of a pass.
func (s *Store) TouchTerm(ctx context.Context, termID string, checkedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracked_terms SET last_checked_at = $1 WHERE id = $2`, checkedAt, termID)
	return err
}
