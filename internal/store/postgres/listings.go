package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/mkrenek/adwatch/internal/domain"
)

var ErrListingNotFound = errors.New("stored listing not found")

const listingColumns = `id, subscriber_id, term_id, external_id, title, description, price,
location, seller_name, link, image_url, posted_at_raw, posted_at, scraped_at,
is_new, marked_new_at, is_deleted, deleted_at`

// ActiveByTerm returns the non-deleted stored listings for one term.
func (s *Store) ActiveByTerm(ctx context.Context, subscriberID, termID string) ([]domain.StoredListing, error) {
	return s.listingsByTerm(ctx, subscriberID, termID, false)
}

// DeletedByTerm returns the soft-deleted stored listings for one term,
// the resurrection candidates.
func (s *Store) DeletedByTerm(ctx context.Context, subscriberID, termID string) ([]domain.StoredListing, error) {
	return s.listingsByTerm(ctx, subscriberID, termID, true)
}

func (s *Store) listingsByTerm(ctx context.Context, subscriberID, termID string, deleted bool) ([]domain.StoredListing, error) {
	rows := []domain.StoredListing{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+listingColumns+` FROM stored_listings
WHERE subscriber_id = $1 AND term_id = $2 AND is_deleted = $3`,
		subscriberID, termID, deleted)
	return rows, err
}

// OwnedExternalIDs returns every external ID the subscriber has a row for,
// under any term and regardless of deletion state. This is the cross-term
// dedup set: an ad stored under one term is never re-created under another.
func (s *Store) OwnedExternalIDs(ctx context.Context, subscriberID string) (map[string]bool, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids,
		`SELECT external_id FROM stored_listings WHERE subscriber_id = $1`, subscriberID); err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

// RecentBySubscriber returns a subscriber's listings newest first: posting
// date descending with unparsed dates last, then scrape time, then row ID
// for a stable order.
func (s *Store) RecentBySubscriber(ctx context.Context, subscriberID string, limit int, includeDeleted bool) ([]domain.StoredListing, error) {
	if limit <= 0 {
		limit = 100
	}
	rows := []domain.StoredListing{}
	query := `SELECT ` + listingColumns + ` FROM stored_listings WHERE subscriber_id = $1`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	query += ` ORDER BY posted_at DESC NULLS LAST, scraped_at DESC, id DESC LIMIT $2`
	err := s.db.SelectContext(ctx, &rows, query, subscriberID, limit)
	return rows, err
}

// GetByExternalID fetches the subscriber's row for one source-site ad ID.
func (s *Store) GetByExternalID(ctx context.Context, subscriberID, externalID string) (*domain.StoredListing, error) {
	var row domain.StoredListing
	err := s.db.GetContext(ctx, &row,
		`SELECT `+listingColumns+` FROM stored_listings WHERE subscriber_id = $1 AND external_id = $2`,
		subscriberID, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ApplyDiff commits one term's reconciliation mutations in a single
// transaction and stamps the term's last_checked_at. Any failure rolls the
// whole diff back; retry is the caller's policy, not the store's.
func (s *Store) ApplyDiff(ctx context.Context, diff *domain.Diff) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	insertStmt := `
INSERT INTO stored_listings (` + listingColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	for i := range diff.Created {
		l := &diff.Created[i]
		if _, err := tx.ExecContext(ctx, insertStmt,
			l.ID, l.SubscriberID, l.TermID, l.ExternalID, l.Title, l.Description, l.Price,
			l.Location, l.SellerName, l.Link, l.ImageURL, l.PostedAtRaw, l.PostedAt, l.ScrapedAt,
			l.IsNew, l.MarkedNewAt, l.IsDeleted, l.DeletedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert listing %s: %w", l.ExternalID, err)
		}
	}

	resurrectStmt := `
UPDATE stored_listings SET
  is_deleted = FALSE, deleted_at = NULL, is_new = TRUE, marked_new_at = $2,
  title = $3, description = $4, price = $5, location = $6, seller_name = $7,
  link = $8, image_url = $9, posted_at_raw = $10, posted_at = $11, scraped_at = $12
WHERE id = $1`

	for i := range diff.Resurrected {
		l := &diff.Resurrected[i]
		if _, err := tx.ExecContext(ctx, resurrectStmt,
			l.ID, l.MarkedNewAt, l.Title, l.Description, l.Price, l.Location, l.SellerName,
			l.Link, l.ImageURL, l.PostedAtRaw, l.PostedAt, l.ScrapedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("resurrect listing %s: %w", l.ExternalID, err)
		}
	}

	if len(diff.SoftDeleted) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stored_listings SET is_deleted = TRUE, deleted_at = $2 WHERE id = ANY($1)`,
			pq.Array(diff.SoftDeleted), diff.CheckedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("soft-delete listings: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tracked_terms SET last_checked_at = $1 WHERE id = $2`,
		diff.CheckedAt, diff.TermID); err != nil {
		tx.Rollback()
		return fmt.Errorf("touch term: %w", err)
	}

	return tx.Commit()
}
