// Package auth issues and verifies the bearer tokens that guard key routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every token
const Issuer = "ledgerapi"

var (
	// ErrInvalidToken is returned for tokens that fail verification
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoSecret is returned when no signing secret is configured
	ErrNoSecret = errors.New("no signing secret configured")
)

// TokenService signs and verifies HS256 tokens for participants
type TokenService struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewTokenService creates a TokenService with the given secret and token TTL
func NewTokenService(secret string, tokenTTL time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// GenerateToken issues a token whose subject is the participant id
func (s *TokenService) GenerateToken(participantID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	if participantID == "" {
		return "", errors.New("participant id is required")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   participantID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies a token and returns the participant id it names
func (s *TokenService) ValidateToken(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		// Pin the algorithm so tokens signed with another method are rejected
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
