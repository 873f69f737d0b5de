package handlers

import (
	"net/http"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/utils"
)

type checkResponse struct {
	Status string `json:"status"`
}

// Check triggers a manual reconciliation sweep. The trigger never queues:
// if a sweep is already running the request is rejected with 429 and the
// caller should wait for it to finish instead of piling on.
func Check(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteIP := utils.ClientIP(r, d.TrustProxy)

		if d.CheckGuard.Busy() {
			d.Logger.Warn("check sweep already in progress",
				logger.String("remote_ip", remoteIP))
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusTooManyRequests, checkResponse{Status: "sweep already running"})
			return
		}

		select {
		case d.CheckTrigger <- struct{}{}:
			d.Logger.Info("manual check sweep triggered via endpoint",
				logger.String("remote_ip", remoteIP))
			writeJSON(w, http.StatusAccepted, checkResponse{Status: "sweep triggered"})
		default:
			// A trigger is already pending; the upcoming sweep covers this
			// request too.
			d.Logger.Warn("check trigger already pending",
				logger.String("remote_ip", remoteIP))
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusTooManyRequests, checkResponse{Status: "sweep already pending"})
		}
	}
}
