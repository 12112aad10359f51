package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousSubject owns every document when no JWT secret is configured.
const AnonymousSubject = "anonymous"

// DefaultTTL is the lifetime of tokens issued by CreateJWT.
const DefaultTTL = 7 * 24 * time.Hour

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Login string `json:"login,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Anonymous returns the claims used when authentication is disabled.
func Anonymous() *AppClaims {
	return &AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: AnonymousSubject},
		Login:            AnonymousSubject,
	}
}

// CreateJWT signs an HS256 token for subject. Login flows live outside this
// service; the token is issued from the command line or by an upstream
// identity provider sharing the secret.
func CreateJWT(secret []byte, subject, name string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is not set")
	}
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Login: subject,
		Name:  name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseJWT(secret []byte, tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
