package postgres

import (
	"context"
	"fmt"
	"time"
)

// ClearExpiredNewTags drops the is_new flag on listings marked new before
// cutoff. Purely monotonic (true to false only), safe to run concurrently
// with reconciliation.
func (s *Store) ClearExpiredNewTags(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stored_listings SET is_new = FALSE WHERE is_new AND marked_new_at < $1`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeDeletedBefore hard-deletes listings that have been soft-deleted since
// before cutoff. Dependent favorites go first, in the same transaction, so
// referential integrity holds even if the purge is interrupted.
func (s *Store) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM favorites WHERE listing_id IN (
  SELECT id FROM stored_listings WHERE is_deleted AND deleted_at < $1
)`, cutoff); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("purge favorites: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM stored_listings WHERE is_deleted AND deleted_at < $1`, cutoff)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("purge listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
