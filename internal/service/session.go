package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"otp-auth-service/internal/secret"
)

// SessionTokenService mints and resolves the stateless session tokens
// issued after a successful verification. Tokens are HS256 JWTs carrying
// the normalized identity as subject; validity is entirely signature plus
// expiry, nothing is stored server-side.
type SessionTokenService struct {
	secrets secret.Provider
	now     func() time.Time
}

func NewSessionTokenService(secrets secret.Provider) *SessionTokenService {
	return &SessionTokenService{secrets: secrets, now: time.Now}
}

// Mint signs a token for subject expiring after ttl. Fails closed when the
// signing secret is unavailable or still a development placeholder.
func (s *SessionTokenService) Mint(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	signingKey, err := s.secrets.Get(ctx, secret.PurposeJWT)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Resolve verifies a token and returns its subject. Bad signature,
// malformed input, wrong algorithm, and expiry all collapse to
// ErrUnauthorized; the caller learns nothing about which check failed.
func (s *SessionTokenService) Resolve(ctx context.Context, tokenString string) (string, error) {
	signingKey, err := s.secrets.Get(ctx, secret.PurposeJWT)
	if err != nil {
		return "", err
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(signingKey), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
