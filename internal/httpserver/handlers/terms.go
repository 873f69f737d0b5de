package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/store/postgres"
)

type addTermRequest struct {
	Term string `json:"term"`
}

// normalizeTerm strips surrounding whitespace and nothing else. Terms are
// case-sensitive: "Kolo" and "kolo" are different searches.
func normalizeTerm(raw string) string {
	return strings.TrimSpace(raw)
}

type addTermResponse struct {
	Term    domain.TrackedTerm `json:"term"`
	Created bool               `json:"created"`
}

// ListTerms returns every active term for the subscriber.
func ListTerms(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")

		terms, err := d.Store.ActiveTerms(r.Context(), subscriberID)
		if err != nil {
			d.Logger.Error("failed to list terms", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list terms")
			return
		}
		if terms == nil {
			terms = []domain.TrackedTerm{}
		}
		writeJSON(w, http.StatusOK, terms)
	}
}

// AddTerm registers a search term for the subscriber. A brand new term is
// seeded in the background: its current listings get stored without the new
// tag so registration does not flood the subscriber with notifications.
func AddTerm(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")

		var req addTermRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		term := normalizeTerm(req.Term)
		if term == "" {
			writeError(w, http.StatusBadRequest, "term must not be empty")
			return
		}

		tracked, created, err := d.Store.AddTerm(r.Context(), subscriberID, term)
		if err != nil {
			d.Logger.Error("failed to add term",
				logger.String("subscriber", subscriberID),
				logger.String("term", term),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to add term")
			return
		}

		if created {
			// The seed fetch takes longer than the request timeout allows,
			// so it runs detached. Listings appear once it completes; until
			// then the term simply has none.
			go seedTerm(d, tracked)
			writeJSON(w, http.StatusCreated, addTermResponse{Term: tracked, Created: true})
			return
		}
		writeJSON(w, http.StatusOK, addTermResponse{Term: tracked, Created: false})
	}
}

func seedTerm(d deps.Deps, term domain.TrackedTerm) {
	ctx, cancel := context.WithTimeout(context.Background(), d.SeedTimeout)
	defer cancel()

	if _, err := d.Engine.SeedTerm(ctx, term); err != nil {
		d.Logger.Error("term seeding failed",
			logger.String("subscriber", term.SubscriberID),
			logger.String("term", term.Term),
			logger.Error(err))
	}
}

// RemoveTerm deactivates a term and soft-deletes its listings.
func RemoveTerm(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")
		term := normalizeTerm(chi.URLParam(r, "term"))

		if err := d.Store.RemoveTerm(r.Context(), subscriberID, term); err != nil {
			if errors.Is(err, postgres.ErrTermNotFound) {
				writeError(w, http.StatusNotFound, "term not tracked")
				return
			}
			d.Logger.Error("failed to remove term",
				logger.String("subscriber", subscriberID),
				logger.String("term", term),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to remove term")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
