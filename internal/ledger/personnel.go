package ledger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crucial707/itam/internal/apperr"
)

// Directory confirms that a person exists in the personnel directory.
type Directory interface {
	// Confirm returns nil when userID exists, apperr NotFound when the
	// directory says it does not, and apperr Unavailable for anything else.
	Confirm(ctx context.Context, userID, token string) error
}

// HTTPDirectory calls the personnel service's GET /users/{id}, forwarding
// the caller's bearer token unchanged.
type HTTPDirectory struct {
	BaseURL string
	Client  *http.Client
	// Timeout bounds each lookup independently of the inbound request deadline.
	Timeout time.Duration
}

func NewHTTPDirectory(baseURL string, timeout time.Duration) *HTTPDirectory {
	return &HTTPDirectory{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (d *HTTPDirectory) Confirm(ctx context.Context, userID, token string) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return apperr.Internal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return apperr.Unavailable("User service unavailable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperr.NotFound("User not found")
	default:
		return apperr.Unavailable("User service unavailable", fmt.Errorf("personnel lookup %s: status %d", userID, resp.StatusCode))
	}
}
