package staff

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "posd"

// Claims is the bearer-token payload. Every request downstream of the auth
// middleware is scoped by StoreID.
type Claims struct {
	UserID  string `json:"user_id"`
	StoreID string `json:"store_id"`
	Role    string `json:"role"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the given signing key and token
// lifetime.
func NewTokenIssuer(key string, ttl time.Duration) (*TokenIssuer, error) {
	if key == "" {
		return nil, errors.New("signing key is required")
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &TokenIssuer{key: []byte(key), ttl: ttl}, nil
}

// Issue creates a signed token for the given staff member.
func (i *TokenIssuer) Issue(m Member) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:  m.ID.String(),
		StoreID: m.StoreID,
		Role:    m.Role,
		Name:    m.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   m.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// Verify parses and validates token, returning its claims.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" || claims.StoreID == "" {
		return nil, errors.New("token missing identity claims")
	}
	return claims, nil
}
