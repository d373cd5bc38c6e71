package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crucial707/itam/internal/config"
	"github.com/crucial707/itam/internal/handlers"
	"go.uber.org/zap"
)

func TestNewRouter_HealthAndMetrics(t *testing.T) {
	cfg := config.Load("ledger")
	r := NewRouter(cfg, zap.NewNop())
	r.Method(http.MethodGet, "/health", &handlers.Health{Service: cfg.Service})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status: got %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("/metrics: got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestNewRouter_BodyLimit(t *testing.T) {
	r := NewRouter(config.Load("ledger"), zap.NewNop())
	r.Post("/echo", func(w http.ResponseWriter, req *http.Request) {
		if _, err := io.ReadAll(req.Body); err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	body := strings.NewReader(strings.Repeat("x", 2<<20))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/echo", body))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: got %d, want 413", rr.Code)
	}
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(config.Load("gateway"), zap.NewNop())
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/boom", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("panic status: got %d, want 500", rr.Code)
	}
}
