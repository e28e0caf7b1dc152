package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cryptobank/cryptobank/internal/config"
	"github.com/cryptobank/cryptobank/internal/identity"
)

const issuer = "cryptobank"

// ErrInvalidCredential covers a bad signature, a malformed or expired token,
// and a valid token whose subject no longer resolves to a user.
var ErrInvalidCredential = errors.New("invalid credential")

// Claims is the signed payload of a bearer credential.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Credential is an opaque signed bearer token with its expiry. The token is
// the only session state; nothing is stored server side.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Service issues and resolves bearer credentials.
type Service struct {
	secret []byte
	ttl    time.Duration
	repo   identity.Repository
}

// NewService builds the credential service from the configured signing
// secret and token lifetime.
func NewService(cfg config.Config, repo identity.Repository) *Service {
	return &Service{secret: []byte(cfg.JWTSecret), ttl: cfg.AccessTokenTTL, repo: repo}
}

// Issue signs a credential for the user with a fixed TTL.
func (s *Service) Issue(user identity.User) (Credential, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: signed, ExpiresAt: exp}, nil
}

// Resolve verifies the credential and returns the authenticated user id.
// Read-only and lock-free: safe under unbounded parallelism.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidCredential
	}

	// A deleted user with a still-valid token reads the same as a forged one.
	if _, err := s.repo.FindByID(ctx, claims.Subject); err != nil {
		return "", ErrInvalidCredential
	}

	return claims.Subject, nil
}

// TTL returns the configured credential lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
