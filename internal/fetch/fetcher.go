package fetch

import (
	"context"

	"github.com/mkrenek/adwatch/internal/domain"
)

// Fetcher returns the full result set of listings for one search term.
// Implementations may fail transiently; the reconciler treats any error as
// "leave this term's state alone and move on".
type Fetcher interface {
	Fetch(ctx context.Context, term string) ([]domain.Listing, error)
}
