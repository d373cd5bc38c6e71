package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/crucial707/itam/internal/config"
	"github.com/crucial707/itam/internal/credential"
	"github.com/crucial707/itam/internal/gateway"
	"github.com/crucial707/itam/internal/logging"
	"github.com/crucial707/itam/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load("gateway")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.Service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	r, err := newRouter(cfg, logger)
	if err != nil {
		logger.Fatal("gateway setup failed", zap.Error(err))
	}

	if err := server.Run(cfg, r, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newRouter builds the route table (from GATEWAY_ROUTES_FILE when set) and
// mounts the gateway behind the shared middleware stack.
func newRouter(cfg config.Config, logger *zap.Logger) (http.Handler, error) {
	routes := gateway.DefaultRoutes(cfg.AuthServiceURL, cfg.UserServiceURL, cfg.AssetServiceURL)
	if cfg.RoutesFile != "" {
		loaded, err := gateway.LoadRouteFile(cfg.RoutesFile)
		if err != nil {
			return nil, err
		}
		routes = loaded
	}
	table, err := gateway.NewRouteTable(routes)
	if err != nil {
		return nil, fmt.Errorf("route table: %w", err)
	}

	opts := gateway.Options{
		Routes:          table,
		General:         gateway.NewLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		Auth:            gateway.NewLimiter(cfg.AuthRateLimitMax, cfg.RateLimitWindow),
		UpstreamTimeout: cfg.UpstreamTimeout,
		Log:             logger,
	}
	if cfg.VerifyTokens {
		opts.Verifier = credential.NewRemoteVerifier(cfg.AuthServiceURL, cfg.UpstreamTimeout)
	}

	for _, rt := range table.Routes() {
		logger.Info("route",
			zap.String("prefix", rt.Prefix),
			zap.String("target", rt.Target),
			zap.String("tier", rt.Tier))
	}

	r := server.NewRouter(cfg, logger)
	gateway.New(opts).Register(r)
	return r, nil
}
