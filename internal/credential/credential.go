// Package credential issues and verifies the signed bearer tokens every
// service accepts. A token asserts a subject id and a role and expires after
// a fixed lifetime.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what a token asserts about its holder.
type Identity struct {
	SubjectID string `json:"subjectId"`
	Role      string `json:"role"`
}

// Claims is the JWT payload.
type Claims struct {
	SubjectID string `json:"subjectId"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks a bearer token. Implementations return apperr kinds
// TokenExpired or TokenInvalid for bad tokens and Unavailable when they
// cannot reach whatever does the checking.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for id.
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.now()
	claims := Claims{
		SubjectID: id.SubjectID,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks signature, algorithm and expiry.
func (i *Issuer) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Unauthorized("No token provided")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.TokenExpired()
		}
		return Identity{}, apperr.TokenInvalid()
	}
	if !parsed.Valid || claims.SubjectID == "" {
		return Identity{}, apperr.TokenInvalid()
	}
	return Identity{SubjectID: claims.SubjectID, Role: claims.Role}, nil
}
