package middleware

import (
	"context"
	"net/http"
	"strings"

	"carousel-studio/handlers/auth"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

// AuthJWT verifies HS256 bearer tokens signed with secret and stores the
// claims on the request context. With an empty secret every request runs as
// the anonymous user.
func AuthJWT(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		logrus.Warn("JWT secret is not set. All requests run as the anonymous user.")
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := context.WithValue(r.Context(), ClaimsContextKey, auth.Anonymous())
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Authorization header is required"})
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Authorization header format must be Bearer {token}"})
				return
			}

			claims, err := auth.ParseJWT(key, parts[1])
			if err != nil {
				logrus.WithError(err).Debug("Rejected bearer token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the claims stored by AuthJWT.
func Claims(ctx context.Context) (*auth.AppClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}

// UserID returns the subject of the authenticated user, or "" when the
// request did not pass through AuthJWT.
func UserID(ctx context.Context) string {
	if claims, ok := Claims(ctx); ok {
		return claims.Subject
	}
	return ""
}
