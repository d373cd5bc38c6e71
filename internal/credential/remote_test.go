package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crucial707/itam/internal/apperr"
)

func TestRemoteVerifier_Valid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/verify" || r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]any{"valid": true, "user": map[string]string{"subjectId": "U1", "role": "admin"}})
	}))
	defer srv.Close()

	id, err := NewRemoteVerifier(srv.URL+"/", time.Second).Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.SubjectID != "U1" || id.Role != "admin" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestRemoteVerifier_Expired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Token expired"})
	}))
	defer srv.Close()

	_, err := NewRemoteVerifier(srv.URL, time.Second).Verify(context.Background(), "tok")
	if !apperr.Is(err, apperr.KindTokenExpired) {
		t.Errorf("Verify: got %v, want TokenExpired", err)
	}
}

func TestRemoteVerifier_Down(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteVerifier(url, time.Second).Verify(context.Background(), "tok")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Errorf("Verify: got %v, want Unavailable", err)
	}
}
