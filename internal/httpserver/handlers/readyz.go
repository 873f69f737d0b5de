package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
)

type componentStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports readiness. Postgres is load-bearing: without it no check
// can persist, so a failed ping means not ready. Redis only carries
// notifications and the stats mirror, its failure degrades but does not
// block.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		db := componentStatus{OK: true}
		if err := d.Store.Ping(ctx); err != nil {
			db = componentStatus{OK: false, Error: err.Error()}
		}

		rdb := componentStatus{OK: true}
		if d.RedisClient == nil {
			rdb = componentStatus{OK: false, Error: "client not initialized"}
		} else if err := d.RedisClient.Ping(ctx).Err(); err != nil {
			rdb = componentStatus{OK: false, Error: err.Error()}
		}

		response := readyzResponse{
			Ready:      db.OK,
			Components: map[string]componentStatus{"postgres": db, "redis": rdb},
		}

		status := http.StatusOK
		if !response.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}
