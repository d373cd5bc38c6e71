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
	"github.com/crucial707/itam/internal/ledger"
	"github.com/crucial707/itam/internal/logging"
	"github.com/crucial707/itam/internal/middleware"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"github.com/crucial707/itam/internal/scheduler"
	"github.com/crucial707/itam/internal/server"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load("ledger")
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

	if err := db.Run(cfg.PostgresURL(), db.SetLedger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("database ready", zap.String("db", cfg.DBName))

	svc := newLedger(database, cfg, logger)
	if cfg.ReconcileCron != "" {
		c, err := scheduler.Start(cfg.ReconcileCron, svc, cfg.ReconcileRepair, logger)
		if err != nil {
			logger.Fatal("scheduler", zap.Error(err))
		}
		defer c.Stop()
	}

	if err := server.Run(cfg, newRouter(database, svc, cfg, logger), logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLedger(database *sql.DB, cfg config.Config, logger *zap.Logger) *ledger.Service {
	return ledger.NewService(
		repo.NewAssetRepo(database),
		repo.NewAssignmentRepo(database),
		ledger.NewHTTPDirectory(cfg.UserServiceURL, cfg.PersonnelTimeout),
		repo.NewAuditRepo(database),
		logger,
	)
}

// newRouter mounts /assets and /assignments. Every route needs a valid
// token; mutations and consistency checks need the admin role.
func newRouter(database *sql.DB, svc *ledger.Service, cfg config.Config, logger *zap.Logger) http.Handler {
	assets := &handlers.AssetHandler{Ledger: svc, Log: logger}
	assignments := &handlers.AssignmentHandler{Ledger: svc, Log: logger}
	audit := &handlers.AuditHandler{Repo: repo.NewAuditRepo(database)}
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r := server.NewRouter(cfg, logger)
	r.Method(http.MethodGet, "/health", &handlers.Health{Service: cfg.Service, Ping: database.PingContext})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(credential.NewIssuer(cfg.JWTSecret, cfg.TokenTTL())))
		r.Use(chimw.Timeout(cfg.RequestTimeout))

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", assets.ListAssets)
			r.Get("/status/{status}", assets.ListAssetsByStatus)
			r.With(adminOnly).Get("/audit", audit.ListAudit)
			r.Get("/{assetId}", assets.GetAsset)
			r.With(adminOnly).Post("/", assets.CreateAsset)
			r.With(adminOnly).Put("/{assetId}", assets.UpdateAsset)
			r.With(adminOnly).Delete("/{assetId}", assets.DeleteAsset)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", assignments.ListAssignments)
			r.Get("/user/{userId}", assignments.ListByUser)
			r.Get("/asset/{assetId}", assignments.ListByAsset)
			r.Get("/status/{status}", assignments.ListByStatus)
			r.With(adminOnly).Get("/reconcile", assignments.Reconcile)
			r.With(adminOnly).Post("/reconcile", assignments.Reconcile)
			r.Get("/{id}", assignments.GetAssignment)
			r.With(adminOnly).Post("/", assignments.CreateAssignment)
			r.With(adminOnly).Put("/{id}", assignments.UpdateAssignment)
			r.With(adminOnly).Delete("/{id}", assignments.DeleteAssignment)
		})
	})
	return r
}
