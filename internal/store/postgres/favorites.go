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

// ToggleFavorite adds or removes a favorite for the subscriber's stored
// listing with the given source-site ad ID. Returns true when the listing is
// favorited after the call.
func (s *Store) ToggleFavorite(ctx context.Context, subscriberID, externalID string) (bool, error) {
	listing, err := s.GetByExternalID(ctx, subscriberID, externalID)
	if err != nil {
		return false, err
	}

	var favID string
	err = s.db.GetContext(ctx, &favID,
		`SELECT id FROM favorites WHERE subscriber_id = $1 AND listing_id = $2`,
		subscriberID, listing.ID)
	switch {
	case err == nil:
		if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1`, favID); err != nil {
			return true, fmt.Errorf("remove favorite: %w", err)
		}
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("lookup favorite: %w", err)
	}

	fav := domain.Favorite{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ListingID:    listing.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.NamedExecContext(ctx,
		`INSERT INTO favorites (id, subscriber_id, listing_id, created_at)
VALUES (:id, :subscriber_id, :listing_id, :created_at)`, fav); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

// FavoritesBySubscriber returns the favorited listings, most recently
// favorited first. Soft-deleted listings stay visible here; favorites are
// the reason deleted rows are retained at all.
func (s *Store) FavoritesBySubscriber(ctx context.Context, subscriberID string) ([]domain.StoredListing, error) {
	rows := []domain.StoredListing{}
	err := s.db.SelectContext(ctx, &rows, `
SELECT l.id, l.subscriber_id, l.term_id, l.external_id, l.title, l.description, l.price,
       l.location, l.seller_name, l.link, l.image_url, l.posted_at_raw, l.posted_at, l.scraped_at,
       l.is_new, l.marked_new_at, l.is_deleted, l.deleted_at
FROM favorites f
JOIN stored_listings l ON l.id = f.listing_id
WHERE f.subscriber_id = $1
ORDER BY f.created_at DESC`,
		subscriberID)
	return rows, err
}
