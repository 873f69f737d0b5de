package domain

import "time"

// Listing is a single classified ad as observed during one scrape of the
// source site. All display attributes are best effort: the site does not
// guarantee any of them beyond the external ID.
type Listing struct {
	// ExternalID is the identifier the source site assigns to the ad.
	// It is the uniqueness key within one subscriber's universe.
	ExternalID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Location    string `json:"location"`
	SellerName  string `json:"seller_name"`
	Link        string `json:"link"`
	ImageURL    string `json:"image_url"`

	// PostedAtRaw is the site-native posting date text ("8.7. 2025").
	// PostedAt is its parsed form; nil when parsing failed. A failed parse
	// only degrades sort order, it never blocks processing.
	PostedAtRaw string     `json:"posted_at_raw"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`

	// ObservedAt is when the scrape that produced this record happened.
	ObservedAt time.Time `json:"observed_at"`
}

// TrackedTerm is a subscriber's watched search keyword.
type TrackedTerm struct {
	ID           string     `db:"id" json:"id"`
	SubscriberID string     `db:"subscriber_id" json:"subscriber_id"`
	Term         string     `db:"term" json:"term"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastChecked  *time.Time `db:"last_checked_at" json:"last_checked_at,omitempty"`
}

// StoredListing is the persisted projection of a Listing plus lifecycle
// flags. One row exists per (subscriber, external ID), not per term: an ad
// matching two of a subscriber's terms is stored once, under the term that
// first discovered it.
//
// Lifecycle: created with IsNew=true -> IsNew cleared once the new-window
// elapses -> IsDeleted=true when absent from a scrape -> back to active and
// new on reappearance (resurrection) -> hard-deleted only after a long
// retention window with no favorite references left.
type StoredListing struct {
	ID           string `db:"id" json:"db_id"`
	SubscriberID string `db:"subscriber_id" json:"subscriber_id"`
	TermID       string `db:"term_id" json:"term_id"`

	ExternalID  string     `db:"external_id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Price       string     `db:"price" json:"price"`
	Location    string     `db:"location" json:"location"`
	SellerName  string     `db:"seller_name" json:"seller_name"`
	Link        string     `db:"link" json:"link"`
	ImageURL    string     `db:"image_url" json:"image_url"`
	PostedAtRaw string     `db:"posted_at_raw" json:"posted_at_raw"`
	PostedAt    *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	ScrapedAt   time.Time  `db:"scraped_at" json:"scraped_at"`

	// IsNew holds from creation or resurrection until the new-window
	// expiry sweep clears it. MarkedNewAt drives that expiry.
	IsNew       bool       `db:"is_new" json:"is_new"`
	MarkedNewAt *time.Time `db:"marked_new_at" json:"marked_new_at,omitempty"`

	// IsDeleted means "not currently observed on the source site". The row
	// is retained for resurrection and favorites integrity; hard deletion
	// is the retention sweep's job, never the reconciler's.
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// AsListing converts the stored row back to its scrape-shaped form, used
// when reporting removals.
func (s *StoredListing) AsListing() Listing {
	return Listing{
		ExternalID:  s.ExternalID,
		Title:       s.Title,
		Description: s.Description,
		Price:       s.Price,
		Location:    s.Location,
		SellerName:  s.SellerName,
		Link:        s.Link,
		ImageURL:    s.ImageURL,
		PostedAtRaw: s.PostedAtRaw,
		PostedAt:    s.PostedAt,
		ObservedAt:  s.ScrapedAt,
	}
}

// Refresh overwrites the row's display attributes from a fresh scrape of the
// same ad. Lifecycle flags are left alone.
func (s *StoredListing) Refresh(l Listing) {
	s.Title = l.Title
	s.Description = l.Description
	s.Price = l.Price
	s.Location = l.Location
	s.SellerName = l.SellerName
	s.Link = l.Link
	s.ImageURL = l.ImageURL
	s.PostedAtRaw = l.PostedAtRaw
	s.PostedAt = l.PostedAt
	s.ScrapedAt = l.ObservedAt
}

// Favorite marks a stored listing as pinned by its subscriber. Favorites
// block the retention sweep from hard-deleting the listing row.
type Favorite struct {
	ID           string    `db:"id" json:"id"`
	SubscriberID string    `db:"subscriber_id" json:"subscriber_id"`
	ListingID    string    `db:"listing_id" json:"listing_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
