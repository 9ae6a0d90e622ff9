package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/bnpl-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса кредитной оценки.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.apiKey.Middleware)

		r.Route("/credit", func(r chi.Router) {
			r.Post("/assess", h.Assess)
			r.Get("/score/{userID}", h.GetScore)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{userID}", h.GetUser)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.AddTransaction)
			r.Get("/{userID}", h.GetTransactions)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
