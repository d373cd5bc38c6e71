package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/crucial707/itam/internal/config"
	"github.com/crucial707/itam/internal/credential"
	"github.com/crucial707/itam/internal/db"
	"github.com/crucial707/itam/internal/handlers"
	"github.com/crucial707/itam/internal/logging"
	"github.com/crucial707/itam/internal/middleware"
	"github.com/crucial707/itam/internal/repo"
	"github.com/crucial707/itam/internal/server"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load("credentials")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.Service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Connect(ctx, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass,
		db.PoolOptions{MaxOpenConns: cfg.DBMaxOpenConns, MaxIdleConns: cfg.DBMaxIdleConns})
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Run(cfg.PostgresURL(), db.SetCredentials); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("database ready", zap.String("db", cfg.DBName))

	if err := server.Run(cfg, newRouter(database, cfg, logger), logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newRouter mounts the credential endpoints under /auth. Signup and login
// sit behind a per-address token bucket.
func newRouter(database *sql.DB, cfg config.Config, logger *zap.Logger) http.Handler {
	h := &handlers.AuthHandler{
		UserRepo: repo.NewUserRepo(database),
		Issuer:   credential.NewIssuer(cfg.JWTSecret, cfg.TokenTTL()),
		Log:      logger,
	}
	guard := middleware.LoginRateLimiter(cfg.LoginRatePerMinute)

	r := server.NewRouter(cfg, logger)
	r.Method(http.MethodGet, "/health", &handlers.Health{Service: cfg.Service, Ping: database.PingContext})
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware)
			r.Post("/signup", h.Signup)
			r.Post("/register", h.Signup)
			r.Post("/login", h.Login)
		})
		r.Get("/verify", h.Verify)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})
	return r
}
