package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/crucial707/itam/internal/apperr"
)

// RemoteVerifier asks the credential service's GET /auth/verify endpoint.
// The gateway uses it so it never needs the signing secret.
type RemoteVerifier struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteVerifier(baseURL string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	Valid bool     `json:"valid"`
	User  Identity `json:"user"`
	Error string   `json:"error"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Unauthorized("No token provided")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/verify", nil)
	if err != nil {
		return Identity{}, apperr.Internal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.Client.Do(req)
	if err != nil {
		return Identity{}, apperr.Unavailable("Authentication service unavailable", err)
	}
	defer resp.Body.Close()

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, apperr.Unavailable("Authentication service unavailable", fmt.Errorf("decode verify response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK && body.Valid:
		return body.User, nil
	case resp.StatusCode == http.StatusUnauthorized:
		if body.Error == "Token expired" {
			return Identity{}, apperr.TokenExpired()
		}
		return Identity{}, apperr.TokenInvalid()
	default:
		return Identity{}, apperr.Unavailable("Authentication service unavailable",
			fmt.Errorf("verify: unexpected status %d", resp.StatusCode))
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
