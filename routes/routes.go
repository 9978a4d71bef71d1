package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/run-contest/docs"
	"github.com/Dosada05/run-contest/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options carries the cross-cutting pieces of the router.
type Options struct {
	// Authenticate resolves the caller account of protected routes.
	Authenticate   func(http.Handler) http.Handler
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	contestHandler *handlers.ContestHandler,
	registryHandler *handlers.RegistryHandler,
	ledgerHandler *handlers.LedgerHandler,
	webSocketHandler *handlers.WebSocketHandler,
	opts Options,
) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}
	router.Get("/swagger/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.OpenAPI)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json")))

	// Websocket upgrades must not be wrapped by the request timeout.
	router.Get("/ws/contests/{contestAddress}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/accounts", authHandler.CreateAccountHandler)
			r.Post("/token", authHandler.TokenHandler)
		})

		r.Get("/deployments", registryHandler.DeploymentsHandler)
		r.Get("/accounts/{accountAddress}/registrations", contestHandler.AccountRegistrationsHandler)

		r.Route("/registry", func(r chi.Router) {
			r.Get("/", registryHandler.CurrentHandler)
			r.With(opts.Authenticate).Post("/", registryHandler.DeployHandler)
		})

		r.Route("/registries/{registryAddress}", func(r chi.Router) {
			r.Get("/", registryHandler.GetHandler)
			r.Get("/contests", registryHandler.ListContestsHandler)
			r.Get("/current", registryHandler.CurrentContestHandler)
			r.With(opts.Authenticate).Post("/contests", registryHandler.AddContestHandler)
		})

		r.Route("/contests", func(r chi.Router) {
			r.Get("/", contestHandler.ListHandler)
			r.Get("/presets", contestHandler.PresetsHandler)
			r.With(opts.Authenticate).Post("/", contestHandler.DeployHandler)

			r.Route("/{contestAddress}", func(r chi.Router) {
				r.Get("/", contestHandler.GetHandler)

				r.Group(func(r chi.Router) {
					r.Use(opts.Authenticate)

					r.Put("/description", contestHandler.SetDescriptionHandler)
					r.Post("/runners", contestHandler.RegisterRunnerHandler)
					r.Post("/cancel", contestHandler.CancelHandler)
					r.Post("/start", contestHandler.StartHandler)
					r.Post("/withdraw", contestHandler.WithdrawHandler)
					r.Post("/end", contestHandler.EndHandler)
					r.Post("/winnings/{runnerID}", contestHandler.CollectWinningsHandler)
					r.Post("/refunds/{runnerID}", contestHandler.ProcessRefundHandler)
				})
			})
		})

		r.Route("/assets/{assetAddress}", func(r chi.Router) {
			r.Get("/balances/{accountAddress}", ledgerHandler.BalanceHandler)
			r.Get("/allowances/{ownerAddress}/{spenderAddress}", ledgerHandler.AllowanceHandler)
			r.Get("/transfers", ledgerHandler.TransfersHandler)
			r.With(opts.Authenticate).Post("/approvals", ledgerHandler.ApproveHandler)
		})
	})
}
