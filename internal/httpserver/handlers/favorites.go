package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/store/postgres"
)

type toggleFavoriteResponse struct {
	ExternalID string `json:"external_id"`
	Favorited  bool   `json:"favorited"`
}

// ToggleFavorite flips the favorite flag on one of the subscriber's
// listings. Soft-deleted listings can still be favorited; a favorite keeps
// its listing visible until the retention purge.
func ToggleFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")
		externalID := chi.URLParam(r, "externalID")

		favorited, err := d.Store.ToggleFavorite(r.Context(), subscriberID, externalID)
		if err != nil {
			if errors.Is(err, postgres.ErrListingNotFound) {
				writeError(w, http.StatusNotFound, "listing not found")
				return
			}
			d.Logger.Error("failed to toggle favorite",
				logger.String("subscriber", subscriberID),
				logger.String("external_id", externalID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to toggle favorite")
			return
		}
		writeJSON(w, http.StatusOK, toggleFavoriteResponse{
			ExternalID: externalID,
			Favorited:  favorited,
		})
	}
}

// ListFavorites returns the subscriber's favorited listings, most recently
// favorited first.
func ListFavorites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")

		listings, err := d.Store.FavoritesBySubscriber(r.Context(), subscriberID)
		if err != nil {
			d.Logger.Error("failed to list favorites",
				logger.String("subscriber", subscriberID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list favorites")
			return
		}
		if listings == nil {
			listings = []domain.StoredListing{}
		}
		writeJSON(w, http.StatusOK, listings)
	}
}
