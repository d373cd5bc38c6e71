package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rate-limit tiers a route can opt into on top of the general tier.
const (
	TierGeneral = "general"
	TierAuth    = "auth"
)

// Route maps an external path prefix to a backend service.
type Route struct {
	Prefix      string `yaml:"prefix" json:"path"`
	Target      string `yaml:"target" json:"target"`
	Rewrite     string `yaml:"rewrite" json:"-"`
	Description string `yaml:"description" json:"description"`
	// Tier adds a stricter limiter for this prefix. Empty means general only.
	Tier string `yaml:"tier" json:"-"`
	// Auth asks the gateway to pre-check the bearer token when token
	// verification is switched on.
	Auth bool `yaml:"auth" json:"-"`

	target *url.URL
}

// Matches reports whether path falls under the route prefix on a segment
// boundary, so /api/assets never claims /api/assetsX.
func (r *Route) Matches(path string) bool {
	if path == r.Prefix {
		return true
	}
	return strings.HasPrefix(path, r.Prefix) && strings.HasPrefix(path[len(r.Prefix):], "/")
}

// RewritePath substitutes the route prefix with the backend mount prefix.
func (r *Route) RewritePath(path string) string {
	rest := strings.TrimPrefix(path, r.Prefix)
	out := r.Rewrite + rest
	if out == "" {
		return "/"
	}
	return out
}

// RouteTable is the ordered, immutable set of routes built at startup.
type RouteTable struct {
	routes []*Route
}

// NewRouteTable validates routes and keeps them in the given order.
func NewRouteTable(routes []Route) (*RouteTable, error) {
	if len(routes) == 0 {
		return nil, errors.New("route table is empty")
	}
	t := &RouteTable{}
	seen := make(map[string]bool)
	for i := range routes {
		rt := routes[i]
		rt.Prefix = "/" + strings.Trim(rt.Prefix, "/")
		rt.Rewrite = strings.TrimRight(rt.Rewrite, "/")
		if rt.Rewrite != "" && !strings.HasPrefix(rt.Rewrite, "/") {
			rt.Rewrite = "/" + rt.Rewrite
		}
		if seen[rt.Prefix] {
			return nil, fmt.Errorf("route %d: duplicate prefix %q", i, rt.Prefix)
		}
		seen[rt.Prefix] = true

		u, err := url.Parse(rt.Target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("route %q: invalid target %q", rt.Prefix, rt.Target)
		}
		if rt.Tier == "" {
			rt.Tier = TierGeneral
		}
		if rt.Tier != TierGeneral && rt.Tier != TierAuth {
			return nil, fmt.Errorf("route %q: unknown tier %q", rt.Prefix, rt.Tier)
		}
		rt.target = u
		t.routes = append(t.routes, &rt)
	}
	return t, nil
}

// Match returns the first registered route that claims path, or nil.
func (t *RouteTable) Match(path string) *Route {
	for _, r := range t.routes {
		if r.Matches(path) {
			return r
		}
	}
	return nil
}

// Prefixes lists route prefixes in registration order.
func (t *RouteTable) Prefixes() []string {
	out := make([]string, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.Prefix
	}
	return out
}

// Routes returns a copy of the table in registration order.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, r := range t.routes {
		out[i] = *r
	}
	return out
}

// DefaultRoutes is the standard table for the three backend services.
func DefaultRoutes(authURL, userURL, assetURL string) []Route {
	return []Route{
		{Prefix: "/api/auth", Target: authURL, Rewrite: "/auth", Description: "Authentication Service", Tier: TierAuth},
		{Prefix: "/api/users", Target: userURL, Rewrite: "/users", Description: "User Service", Auth: true},
		{Prefix: "/api/assets", Target: assetURL, Rewrite: "/assets", Description: "Asset Service", Auth: true},
		{Prefix: "/api/assignments", Target: assetURL, Rewrite: "/assignments", Description: "Assignment Service (part of Asset Service)", Auth: true},
	}
}

type routeFile struct {
	Routes []Route `yaml:"routes"`
}

// LoadRouteFile reads a YAML route table. Order in the file is match order.
//
//	routes:
//	  - prefix: /api/auth
//	    target: http://credentials:5101
//	    rewrite: /auth
//	    description: Authentication Service
//	    tier: auth
func LoadRouteFile(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	var f routeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse route file %s: %w", path, err)
	}
	return f.Routes, nil
}
