package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tmiguel/saldo/internal/http/account"
	"github.com/tmiguel/saldo/internal/http/importcsv"
	"github.com/tmiguel/saldo/internal/http/middleware"
	"github.com/tmiguel/saldo/internal/http/transaction"
	"github.com/tmiguel/saldo/internal/http/transfer"
)

func New(
	jwtSecret string,
	accountsV1 *account.Handler,
	transactionsV1 *transaction.Handler,
	importV1 *importcsv.Handler,
	transfersV1 *transfer.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Route("/accounts", func(r chi.Router) {
			accountsV1.Routes(r)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/import", importV1.Routes)

		r.Route("/transfers", func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			transfersV1.Routes(r)
		})
	})

	return router
}
