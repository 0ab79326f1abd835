package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calygofire/calygo"
)

func newRouter(c *controller, m *metrics, l calygo.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(l))
	r.Use(middleware.Recoverer)
	r.Use(m.instrument)

	r.Method(http.MethodGet, "/metrics", m.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", c.Health)

		r.Get("/addresses", c.GetAddresses)
		r.Post("/addresses", c.CreateAddress)
		r.Get("/addresses/{id}", c.GetAddress)

		r.Get("/tournees", c.GetTournees)
		r.Post("/tournees", c.CreateTournee)
		r.Patch("/tournees/{id}", c.UpdateTournee)
		r.Delete("/tournees/{id}", c.DeleteTournee)

		r.Get("/sales", c.GetSales)
		r.Post("/sales", c.CreateSale)

		r.Get("/visits", c.GetVisits)
		r.Post("/visits", c.CreateVisit)
	})

	return r
}

func requestLogger(l calygo.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			l.Debug("handled request",
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
