package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is only acceptable outside prod.
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	// Service is the name used in logs, health payloads and metrics.
	Service string
	Port    string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// MongoURI and MongoDB locate the personnel directory store.
	MongoURI string
	MongoDB  string

	JWTSecret string

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string

	// JWTExpireHours is the token lifetime in hours (default 24). Set via JWT_EXPIRE_HOURS.
	JWTExpireHours int

	// Backend base URLs. The gateway routes to all three; the ledger calls UserServiceURL.
	AuthServiceURL  string
	UserServiceURL  string
	AssetServiceURL string

	// RoutesFile optionally points at a YAML route table for the gateway.
	RoutesFile string

	// RateLimitWindow is the fixed window shared by both gateway tiers (default 15m).
	RateLimitWindow time.Duration
	// RateLimitMax is the general tier budget per client address per window (default 100).
	RateLimitMax int
	// AuthRateLimitMax is the credential-issuance tier budget (default 20).
	AuthRateLimitMax int

	// VerifyTokens makes the gateway check bearer tokens against the credential service
	// before forwarding to routes marked auth: true.
	VerifyTokens bool

	// UpstreamTimeout bounds a proxied round trip at the gateway.
	UpstreamTimeout time.Duration
	// PersonnelTimeout bounds the ledger's user lookup; it must stay below RequestTimeout.
	PersonnelTimeout time.Duration
	// RequestTimeout bounds a whole inbound request.
	RequestTimeout time.Duration

	// ReconcileCron is a standard 5-field cron expression; empty disables the scheduled pass.
	ReconcileCron string
	// ReconcileRepair lets the scheduled pass fix the asset status it finds out of line.
	ReconcileRepair bool

	// LoginRatePerMinute guards signup/login on the credential service itself.
	LoginRatePerMinute int

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	// When empty, the service listens with plain HTTP.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string

	// CORSAllowedOrigins is a list of origins allowed for CORS (e.g. https://app.example.com, http://localhost:3000).
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string

	// TrustedProxies are the peers (IPs or CIDRs) whose forwarding headers are
	// believed. The gateway is the edge and trusts none by default; the backend
	// services default to loopback and private ranges, where the gateway runs.
	TrustedProxies []string
}

// Load reads the environment. service names the binary and picks its default port.
func Load(service string) Config {
	return Config{
		Service: service,
		Port:    getEnv("PORT", defaultPort(service)),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", defaultDBName(service)),
		DBUser: getEnv("DB_USER", "itam"),
		DBPass: getEnv("DB_PASS", "itam"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "user_db"),

		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		Env:            getEnv("ENV", "dev"),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),

		AuthServiceURL:  getEnv("AUTH_SERVICE_URL", "http://localhost:5101"),
		AssetServiceURL: getEnv("ASSET_SERVICE_URL", "http://localhost:5102"),
		UserServiceURL:  getEnv("USER_SERVICE_URL", "http://localhost:5103"),

		RoutesFile: getEnv("GATEWAY_ROUTES_FILE", ""),

		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:     getEnvInt("RATE_LIMIT_MAX", 100),
		AuthRateLimitMax: getEnvInt("AUTH_RATE_LIMIT_MAX", 20),
		VerifyTokens:     getEnvBool("GATEWAY_VERIFY_TOKENS", false),

		UpstreamTimeout:  getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		PersonnelTimeout: getEnvDuration("PERSONNEL_TIMEOUT", 3*time.Second),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		ReconcileCron:   getEnv("RECONCILE_CRON", "*/10 * * * *"),
		ReconcileRepair: getEnvBool("RECONCILE_REPAIR", false),

		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),

		// Optional TLS configuration for HTTPS.
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", defaultTrustedProxies(service))),
	}
}

// Validate rejects settings that would make a service unsafe or unusable.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value when ENV=prod")
	}
	if c.PersonnelTimeout >= c.RequestTimeout {
		return fmt.Errorf("PERSONNEL_TIMEOUT (%s) must be shorter than REQUEST_TIMEOUT (%s)", c.PersonnelTimeout, c.RequestTimeout)
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
			}
		}
	}
	return nil
}

// TokenTTL is the lifetime of issued credentials.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}

// PostgresURL is the DSN form golang-migrate expects.
func (c Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func defaultPort(service string) string {
	switch service {
	case "credentials":
		return "5101"
	case "ledger":
		return "5102"
	case "personnel":
		return "5103"
	}
	return "8080"
}

func defaultDBName(service string) string {
	switch service {
	case "credentials":
		return "auth_db"
	case "ledger":
		return "asset_db"
	}
	return "itam"
}

func defaultTrustedProxies(service string) string {
	if service == "gateway" {
		return ""
	}
	return "127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"
}

// splitList splits a comma-separated list and trims spaces. Empty strings are omitted.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
