// cmd/server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrmoe28/solarscheduler-sub001/internal/auth"
	"github.com/mrmoe28/solarscheduler-sub001/internal/config"
	"github.com/mrmoe28/solarscheduler-sub001/internal/handlers"
	"github.com/mrmoe28/solarscheduler-sub001/internal/logging"
	"github.com/mrmoe28/solarscheduler-sub001/internal/middleware"
	"github.com/mrmoe28/solarscheduler-sub001/internal/repo"
	"github.com/mrmoe28/solarscheduler-sub001/internal/session"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
)

func main() {
	// --- Load config (config.yaml + env overrides) ---
	cfg := config.Load()

	// --- Logger ---
	// Configure slog from config: logging.level, logging.format
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format == "json")

	// Configure session cookie security (dev often needs Secure=false)
	auth.SetCookieSecurity(cfg.Security.Session.CookieSecure)
	// Configure SameSite policy
	auth.SetCookieSameSite(cfg.Security.Session.SameSite)

	ctx := context.Background()

	// --- Object store backend ---
	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("store init error", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.Debug("store ready", "backend", cfg.Store.Backend)

	r := repo.New(st)

	// --- Sessions + background sweeper ---
	sessions := session.NewStore()
	interval := cfg.Security.Session.SweeperInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	sessions.StartSweeper(ctx, interval)

	// --- Router ---
	mux := chi.NewRouter()

	// Ensure request ID then log requests with slog
	mux.Use(middleware.RequestID(cfg.Security.RequestID.TrustHeader))
	mux.Use(middleware.SlogRequestLogger)
	if cfg.Security.RateLimit.Enabled {
		mux.Use(middleware.RateLimitWith(cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst, cfg.Security.RateLimit.TTL))
	}

	// --- CORS middleware ---
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by browsers
	}))

	// Local auth routes
	mux.Post("/auth/signup", auth.SignupHandler(r, sessions))
	mux.Post("/auth/login", auth.LoginHandler(r, sessions))
	mux.Post("/auth/logout", auth.LogoutHandler(sessions))

	// Account routes behind auth
	mux.With(middleware.RequireAuth(r, sessions)).Get("/auth/me", auth.MeHandler())
	mux.With(middleware.RequireAuth(r, sessions)).Put("/auth/profile", auth.UpdateProfileHandler(r))
	mux.With(middleware.RequireAuth(r, sessions)).Post("/auth/set-password", auth.SetPasswordHandler(r))
	mux.With(middleware.RequireAuth(r, sessions)).Delete("/auth/account", auth.DeleteAccountHandler(r, sessions))

	// Jobs, customers, equipment and installation routes
	handlers.RegisterRoutes(mux, r, sessions)

	// Health root
	mux.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	// --- Start server ---
	addr := cfg.Server.Addr
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	slog.Info("listening", "addr", addr, "backend", cfg.Store.Backend)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// openStore builds the configured store backend. The returned cleanup
// closes any underlying connection pool.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		slog.Debug("connecting to database")
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		st, err := store.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil
	case "surreal":
		st, err := store.NewSurreal(cfg.Surreal.URL, cfg.Surreal.Namespace, cfg.Surreal.Database, cfg.Surreal.User, cfg.Surreal.Pass)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
