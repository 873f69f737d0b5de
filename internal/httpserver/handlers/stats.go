package handlers

import (
	"net/http"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
)

// Stats serves the in-process reconciliation counters.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, d.Stats.Snapshot())
	}
}
