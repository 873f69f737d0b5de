package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/httpserver/handlers"
)

func init() { Register(registerFavorites) }

func registerFavorites(r chi.Router, d deps.Deps) {
	r.Route("/subscribers/{subscriberID}/favorites", func(r chi.Router) {
		r.Get("/", handlers.ListFavorites(d))
		r.Post("/{externalID}", handlers.ToggleFavorite(d))
	})
}
