package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/koru-app/koru/internal/auth"
	"github.com/koru-app/koru/internal/config"
	"github.com/koru-app/koru/internal/database"
	"github.com/koru-app/koru/internal/metrics"
)

// TaskPublisher enqueues out-of-band work for the finance routes
type TaskPublisher interface {
	PublishEnrichment(ctx context.Context, accountID string) error
}

// Api wires the HTTP surface together
type Api struct {
	Config      *config.Config
	Router      *chi.Mux
	db          *database.Database
	authService *auth.Service
	authHandler *auth.Handler
	tasks       TaskPublisher
	exports     Exporter
}

// New creates the Api and builds the route table
func New(cfg *config.Config, db *database.Database, authService *auth.Service, authHandler *auth.Handler, tasks TaskPublisher, exports Exporter) (*Api, error) {
	api := &Api{
		Config:      cfg,
		Router:      chi.NewRouter(),
		db:          db,
		authService: authService,
		authHandler: authHandler,
		tasks:       tasks,
		exports:     exports,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Auth routes, rate limited per client IP
	limiter := newIPRateLimiter(defaultAuthRate, defaultAuthBurst)
	r.Route("/auth", func(r chi.Router) {
		r.Use(limiter.Middleware)
		api.authHandler.Routes(r)
	})

	// Protected finance routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(api.authService))
		r.Get("/connections", api.ListConnections)
		r.Get("/accounts", api.ListAccounts)
		r.Get("/transactions", api.ListTransactions)
		r.Post("/transactions/enrich/{accountID}", api.EnrichTransactions)
		r.Post("/transactions/export", api.ExportTransactions)
	})
}

// Serve starts the HTTP server and blocks
func (api *Api) Serve() error {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	return http.ListenAndServe(addr, api.Router)
}
