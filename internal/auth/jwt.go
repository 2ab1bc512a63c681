// Package auth issues and verifies bearer credentials and hashes
// passwords. It is the identity boundary consumed by both the REST
// middleware and the websocket handshake gate.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrInvalidToken covers every verification failure: malformed tokens,
// bad signatures, expiry, and missing or unparsable subjects.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService signs and verifies HS256 JWTs whose subject is the user ID.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokenService(secret string, ttl time.Duration, clock clockwork.Clock) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Issue creates a signed access token for the given user.
func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the user ID it was
// issued for.
func (s *TokenService) Verify(tokenStr string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
