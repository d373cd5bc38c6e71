package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/crucial707/itam/internal/config"
	"github.com/crucial707/itam/internal/credential"
	"github.com/crucial707/itam/internal/db"
	"github.com/crucial707/itam/internal/handlers"
	"github.com/crucial707/itam/internal/logging"
	"github.com/crucial707/itam/internal/middleware"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"github.com/crucial707/itam/internal/server"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load("personnel")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.Service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	people := repo.NewPersonRepo(client.Database(cfg.MongoDB))
	if err := people.EnsureIndexes(ctx); err != nil {
		logger.Fatal("indexes", zap.Error(err))
	}
	logger.Info("directory ready", zap.String("db", cfg.MongoDB))

	if err := server.Run(cfg, newRouter(people, people.Ping, cfg, logger), logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newRouter mounts /users. Reads need any valid token, writes need admin.
func newRouter(store handlers.PersonStore, ping func(context.Context) error, cfg config.Config, logger *zap.Logger) http.Handler {
	h := &handlers.PersonHandler{Store: store, Log: logger}
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r := server.NewRouter(cfg, logger)
	r.Method(http.MethodGet, "/health", &handlers.Health{Service: cfg.Service, Ping: ping})
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.Authenticate(credential.NewIssuer(cfg.JWTSecret, cfg.TokenTTL())))
		r.Get("/", h.ListPeople)
		r.Get("/role/{role}", h.ListByRole)
		r.Get("/{id}", h.GetPerson)
		r.With(adminOnly).Post("/", h.CreatePerson)
		r.With(adminOnly).Put("/{id}", h.UpdatePerson)
		r.With(adminOnly).Delete("/{id}", h.DeletePerson)
	})
	return r
}
