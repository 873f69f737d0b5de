package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/httpserver/handlers"
	"github.com/mkrenek/adwatch/internal/httpserver/mw"
)

func init() { Register(registerCheck) }

func registerCheck(r chi.Router, d deps.Deps) {
	r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.TriggerBurst,
		RefillPerIPPerMin: d.TriggerPerMin,
		TrustProxy:        d.TrustProxy,
	})).Post("/check", handlers.Check(d))
}
