// Package auth reads identity claims out of provider access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// IssueToken signs claims with HS256. The provider does this in production;
// the dashboard only needs it for local fakes.
func IssueToken(secret []byte, claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies token against secret. An empty secret skips signature
// verification and only decodes, for deployments that do not share the
// provider's signing key. Expiry is enforced either way.
func ParseToken(secret []byte, token string) (Claims, error) {
	var claims Claims
	if len(secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
			return Claims{}, ErrInvalidToken
		}
		if !claims.VerifyExpiresAt(time.Now(), false) {
			return Claims{}, ErrExpiredToken
		}
	} else {
		_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return Claims{}, ErrExpiredToken
			}
			return Claims{}, ErrInvalidToken
		}
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// AppRole prefers the application role over the database role claim.
func (c Claims) AppRole() string {
	if c.AppMetadata.Role != "" {
		return c.AppMetadata.Role
	}
	return c.Role
}
