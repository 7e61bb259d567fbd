// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects the store, the services,
// the handlers and the middleware, and decides which routes need a bearer
// token. Keeping it out of main.go makes the whole stack testable with
// httptest and an in-memory database.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB ─┬─ AccountService ─ AccountHandler
//	                           ├─ PegueService ─── PegueHandler
//	                           ├─ CatalogService ─ CatalogHandler
//	PasswordHasher, TokenService ──┘  Guard ─ RequireAuth
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/config"
	"github.com/sakif/keep-bouncing-back/internal/handler"
	"github.com/sakif/keep-bouncing-back/internal/middleware"
	"github.com/sakif/keep-bouncing-back/internal/repository"
	sqliteRepo "github.com/sakif/keep-bouncing-back/internal/repository/sqlite"
	"github.com/sakif/keep-bouncing-back/internal/seed"
	"github.com/sakif/keep-bouncing-back/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
	metrics  *middleware.Metrics
}

// New opens the store, seeds the trick catalog and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setup(context.Background()); err != nil {
		db.Close() // Clean up DB if setup fails
		return nil, err
	}
	return s, nil
}

func (s *Server) setup(ctx context.Context) error {
	catalog, err := seed.Open(s.config.SeedFile)
	if err != nil {
		return err
	}
	if _, err := seed.Tricks(ctx, s.db, catalog, s.logger); err != nil {
		return fmt.Errorf("seeding tricks: %w", err)
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if s.metrics, err = middleware.NewMetrics(s.registry); err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(auth.Argon2Params{
		Memory:      s.config.Argon2MemoryKiB,
		Iterations:  s.config.Argon2Iterations,
		Parallelism: s.config.Argon2Parallelism,
		SaltLength:  auth.DefaultArgon2Params().SaltLength,
		KeyLength:   auth.DefaultArgon2Params().KeyLength,
	})
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    s.config.SecretKey,
		Algorithm: s.config.JWTAlgorithm,
		TTL:       s.config.TokenTTL(),
		Issuer:    auth.DefaultIssuer,
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.setupRoutes(hasher, tokens)
	return nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique id to each request (logged)
// 2. RealIP: extracts the client IP from proxy headers
// 3. Recoverer: turns panics into 500 instead of crashing
// 4. CORS: answers preflight requests before anything else runs
// 5. Logger and metrics: see every response, including 401s from RequireAuth
func (s *Server) setupRoutes(hasher *auth.PasswordHasher, tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"WWW-Authenticate"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Handler)

	// s.db implements every repository interface; services only see the
	// interfaces, handlers only see the services.
	accountService := service.NewAccountService(s.db, s.db, hasher, tokens, s.logger)
	pegueService := service.NewPegueService(s.db, s.db, s.logger)
	catalogService := service.NewCatalogService(s.db, s.db, s.logger)

	accountHandler := handler.NewAccountHandler(accountService, s.logger)
	pegueHandler := handler.NewPegueHandler(pegueService, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, s.logger)

	guard := auth.NewGuard(tokens, s.db, s.logger)
	requireAuth := auth.RequireAuth(guard, s.metrics, s.logger)

	s.router.Get("/healthz", healthHandler(s.db, s.logger))
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Get("/", accountHandler.HandleList)
		r.Get("/{id}", accountHandler.HandleGet)
		r.Get("/{id}/equipment", accountHandler.HandleListKit)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", accountHandler.HandleMe)
			r.Put("/{id}", accountHandler.HandleUpdate)
			r.Put("/update/{id}", accountHandler.HandleUpdate)
			r.Delete("/{id}", accountHandler.HandleDelete)
			r.Put("/{id}/equipment/{equipmentID}", accountHandler.HandleAddToKit)
			r.Delete("/{id}/equipment/{equipmentID}", accountHandler.HandleRemoveFromKit)
		})
	})

	s.router.Route("/pegues", func(r chi.Router) {
		r.Get("/", pegueHandler.HandleList)
		r.Get("/{id}", pegueHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", pegueHandler.HandleCreate)
			r.Delete("/{id}", pegueHandler.HandleDelete)
		})
	})

	s.router.Get("/tricks", catalogHandler.HandleListTricks)
	s.router.Route("/equipment", func(r chi.Router) {
		r.Get("/", catalogHandler.HandleListEquipment)
		r.With(requireAuth).Post("/", catalogHandler.HandleCreateEquipment)
	})
}

// healthHandler reports 503 when the store does not answer within 2s.
func healthHandler(store repository.Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			logger.Error("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown:
// stop accepting connections, let in-flight requests finish (30s), then
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
