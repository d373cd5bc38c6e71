package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/credential"
)

type key string

const identityKey key = "identity"

// IdentityFrom returns the verified caller stored by Authenticate.
func IdentityFrom(ctx context.Context) (credential.Identity, bool) {
	id, ok := ctx.Value(identityKey).(credential.Identity)
	return id, ok
}

// WithIdentity stores id in ctx. Tests use it to skip token handling.
func WithIdentity(ctx context.Context, id credential.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Authenticate rejects requests without a valid bearer token and stores the
// verified identity in the request context.
func Authenticate(v credential.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := credential.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeJSONError(w, "No token provided", http.StatusUnauthorized)
				return
			}
			id, err := v.Verify(r.Context(), token)
			if err != nil {
				writeJSONError(w, apperr.PublicMessage(err), apperr.HTTPStatus(apperr.KindOf(err)))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole allows the request only when the authenticated role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeJSONError(w, "No token provided", http.StatusUnauthorized)
				return
			}
			if !allowed[id.Role] {
				writeJSONError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
