// Package gateway is the single ingress: it rate-limits by client address,
// matches the path against an ordered route table, rewrites the prefix and
// proxies to the owning service.
package gateway

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/credential"
	"github.com/crucial707/itam/internal/metrics"
	"github.com/crucial707/itam/internal/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	generalLimitMessage = "Too many requests from this IP, please try again later."
	authLimitMessage    = "Too many authentication attempts, please try again later."
)

// Options are the process-scoped pieces a Gateway is built from.
type Options struct {
	Routes  *RouteTable
	General *Limiter
	Auth    *Limiter
	// Verifier enables the token pre-check on routes marked Auth. Nil disables it.
	Verifier credential.Verifier
	// UpstreamTimeout bounds the wait for upstream response headers.
	UpstreamTimeout time.Duration
	Log             *zap.Logger
}

type Gateway struct {
	routes   *RouteTable
	general  *Limiter
	auth     *Limiter
	verifier credential.Verifier
	log      *zap.Logger
	proxies  map[string]*httputil.ReverseProxy
	now      func() time.Time
}

func New(opts Options) *Gateway {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	g := &Gateway{
		routes:   opts.Routes,
		general:  opts.General,
		auth:     opts.Auth,
		verifier: opts.Verifier,
		log:      opts.Log,
		proxies:  make(map[string]*httputil.ReverseProxy),
		now:      time.Now,
	}
	transport := newTransport(opts.UpstreamTimeout)
	for _, rt := range opts.Routes.routes {
		g.proxies[rt.Prefix] = g.newProxy(rt, transport)
	}
	return g
}

func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	if timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
	return t
}

// Register mounts the introspection endpoints and the rate-limited catch-all on r.
func (g *Gateway) Register(r chi.Router) {
	r.Get("/health", g.health)
	r.Get("/api", g.info)
	r.Group(func(r chi.Router) {
		r.Use(g.limitGeneral)
		r.Handle("/*", http.HandlerFunc(g.forward))
	})
}

// ==========================
// Rate limiting
// ==========================

func (g *Gateway) limitGeneral(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.admit(w, r, g.general, TierGeneral, generalLimitMessage) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// admit counts the request against lim and writes 429 when it is over.
func (g *Gateway) admit(w http.ResponseWriter, r *http.Request, lim *Limiter, tier, message string) bool {
	if lim == nil {
		return true
	}
	d := lim.Allow(middleware.ClientIP(r))
	reset := strconv.Itoa(int(math.Ceil(d.Reset.Seconds())))
	w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("RateLimit-Reset", reset)
	if d.Allowed {
		return true
	}
	metrics.IncRateLimited(tier)
	g.log.Warn("rate limited",
		zap.String("tier", tier),
		zap.String("client", middleware.ClientIP(r)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	w.Header().Set("Retry-After", reset)
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": message})
	return false
}

// ==========================
// Forwarding
// ==========================

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request) {
	route := g.routes.Match(r.URL.Path)
	if route == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":           "Route not found",
			"path":            r.URL.Path,
			"availableRoutes": g.routes.Prefixes(),
		})
		return
	}

	if route.Tier == TierAuth && !g.admit(w, r, g.auth, TierAuth, authLimitMessage) {
		return
	}

	if route.Auth && g.verifier != nil {
		if _, err := g.verifier.Verify(r.Context(), credential.BearerToken(r.Header.Get("Authorization"))); err != nil {
			if apperr.Is(err, apperr.KindUnavailable) {
				g.log.Error("token pre-check failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
			writeJSON(w, apperr.HTTPStatus(apperr.KindOf(err)), map[string]string{"error": apperr.PublicMessage(err)})
			return
		}
	}

	g.log.Info("proxy request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("upstream_path", route.RewritePath(r.URL.Path)),
		zap.String("target", route.Target),
		zap.Time("timestamp", g.now()))
	g.proxies[route.Prefix].ServeHTTP(w, r)
}

func (g *Gateway) newProxy(route *Route, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = route.RewritePath(pr.In.URL.Path)
			pr.Out.URL.RawPath = ""
			if pr.In.URL.RawPath != "" {
				pr.Out.URL.RawPath = route.RewritePath(pr.In.URL.RawPath)
			}
			pr.SetURL(route.target)
			pr.SetXForwarded()
			// Only the resolved client goes upstream, never a caller-supplied chain.
			pr.Out.Header.Set("X-Forwarded-For", middleware.ClientIP(pr.In))
		},
		Transport: transport,
		ModifyResponse: func(resp *http.Response) error {
			g.log.Info("proxy response",
				zap.String("method", resp.Request.Method),
				zap.String("path", resp.Request.URL.Path),
				zap.String("target", route.Target),
				zap.Int("status", resp.StatusCode),
				zap.Time("timestamp", g.now()))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.IncUpstreamError(route.Prefix)
			g.log.Error("proxy error",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("target", route.Target),
				zap.Time("timestamp", g.now()),
				zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error":   "Service temporarily unavailable",
				"service": route.Description,
			})
		},
	}
}

// ==========================
// Introspection
// ==========================

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	type routeInfo struct {
		Path        string `json:"path"`
		Description string `json:"description"`
	}
	routes := []routeInfo{}
	for _, rt := range g.routes.Routes() {
		routes = append(routes, routeInfo{Path: rt.Prefix, Description: rt.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "api-gateway",
		"timestamp": g.now().UTC().Format(time.RFC3339Nano),
		"routes":    routes,
	})
}

func (g *Gateway) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "IT Asset Management API Gateway",
		"version":   "1.0.0",
		"endpoints": g.routes.Routes(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
