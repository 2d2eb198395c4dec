package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies the admin API tokens used by the
// verification endpoints
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer using the ADMIN_JWT_SECRET
// environment variable
func NewTokenIssuer() *TokenIssuer {
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me" // Default secret for development
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    12 * time.Hour,
	}
}

// IssueToken creates a signed token for an operator
func (i *TokenIssuer) IssueToken(operator string) (string, error) {
	claims := jwt.MapClaims{
		"sub": operator,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(i.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// VerifyToken validates a bearer token and returns the operator it was
// issued to
func (i *TokenIssuer) VerifyToken(tokenString string) (string, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to verify token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("no sub claim in token")
	}
	return sub, nil
}
