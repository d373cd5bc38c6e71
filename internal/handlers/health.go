package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health answers GET /health. Ping, when set, checks the backing store.
type Health struct {
	Service string
	Ping    func(ctx context.Context) error
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"service":   h.Service,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			body["status"] = "unavailable"
			body["error"] = "store unreachable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}
