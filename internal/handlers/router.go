// internal/handlers/router.go
package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/mrmoe28/solarscheduler-sub001/internal/handlers/customers"
	"github.com/mrmoe28/solarscheduler-sub001/internal/handlers/equipment"
	"github.com/mrmoe28/solarscheduler-sub001/internal/handlers/installations"
	"github.com/mrmoe28/solarscheduler-sub001/internal/handlers/jobs"
	"github.com/mrmoe28/solarscheduler-sub001/internal/middleware"
	"github.com/mrmoe28/solarscheduler-sub001/internal/repo"
	"github.com/mrmoe28/solarscheduler-sub001/internal/session"
)

func RegisterRoutes(mux *chi.Mux, r *repo.Repo, sessions *session.Store) {
	j := jobs.New(r)
	c := customers.New(r)
	e := equipment.New(r)
	i := installations.New(r)

	mux.Route("/jobs", func(sr chi.Router) {
		// Apply auth to the whole group ONCE
		sr.Use(middleware.RequireAuth(r, sessions))

		sr.Get("/", j.List)
		sr.Post("/", j.Create)
		sr.Get("/search", j.Search)
		sr.Get("/stats", j.Stats)
		sr.Get("/{id}", j.Get)
		sr.Patch("/{id}", j.Update)
		sr.Post("/{id}/status", j.UpdateStatus)
		sr.Delete("/{id}", j.Delete)
	})

	mux.Route("/customers", func(sr chi.Router) {
		sr.Use(middleware.RequireAuth(r, sessions))

		sr.Get("/", c.List)
		sr.Post("/", c.Create)
		sr.Get("/search", c.Search)
		sr.Get("/stats", c.Stats)
		sr.Get("/{id}", c.Get)
		sr.Patch("/{id}", c.Update)
		sr.Delete("/{id}", c.Delete)
		sr.Get("/{id}/jobs", c.Jobs)
	})

	mux.Route("/equipment", func(sr chi.Router) {
		sr.Use(middleware.RequireAuth(r, sessions))

		sr.Get("/", e.List)
		sr.Post("/", e.Create)
		sr.Get("/search", e.Search)
		sr.Get("/stats", e.Stats)
		sr.Get("/{id}", e.Get)
		sr.Patch("/{id}", e.Update)
		sr.Post("/{id}/stock", e.AdjustStock)
		sr.Delete("/{id}", e.Delete)
	})

	mux.Route("/installations", func(sr chi.Router) {
		sr.Use(middleware.RequireAuth(r, sessions))

		sr.Get("/", i.List)
		sr.Post("/", i.Create)
		sr.Get("/search", i.Search)
		sr.Get("/stats", i.Stats)
		sr.Get("/{id}", i.Get)
		sr.Patch("/{id}", i.Update)
		sr.Delete("/{id}", i.Delete)
	})
}
