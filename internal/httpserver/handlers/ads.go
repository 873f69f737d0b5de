package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/logger"
)

// ListAds returns the subscriber's stored listings, newest first. Soft
// deleted listings are excluded unless ?include_deleted=true; ?limit caps
// the page size.
func ListAds(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")

		limit := d.AdsDefaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		includeDeleted := r.URL.Query().Get("include_deleted") == "true"

		listings, err := d.Store.RecentBySubscriber(r.Context(), subscriberID, limit, includeDeleted)
		if err != nil {
			d.Logger.Error("failed to list ads",
				logger.String("subscriber", subscriberID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list ads")
			return
		}
		if listings == nil {
			listings = []domain.StoredListing{}
		}
		writeJSON(w, http.StatusOK, listings)
	}
}
