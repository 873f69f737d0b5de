package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/httpserver/handlers"
)

func init() { Register(registerTerms) }

func registerTerms(r chi.Router, d deps.Deps) {
	r.Route("/subscribers/{subscriberID}/terms", func(r chi.Router) {
		r.Get("/", handlers.ListTerms(d))
		r.Post("/", handlers.AddTerm(d))
		r.Delete("/{term}", handlers.RemoveTerm(d))
	})
}
