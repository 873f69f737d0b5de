package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/httpserver/handlers"
)

func init() { Register(registerAds) }

func registerAds(r chi.Router, d deps.Deps) {
	r.Get("/subscribers/{subscriberID}/ads", handlers.ListAds(d))
}
