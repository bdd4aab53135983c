package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"phonebuddy/internal/httputil"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// CallerIDKey is the context key for the authenticated caller's ID
	// (a device ID or an operator identity).
	CallerIDKey contextKey = "caller_id"
)

// AuthMiddleware validates the bearer JWT on the admin and device routes.
// Callers are devices or operators holding a token minted during pairing;
// pairing itself happens elsewhere.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				// Expected format: "Bearer <token>"
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				httputil.WriteUnauthenticated(w, "Missing authentication token")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				httputil.WriteUnauthenticated(w, "Invalid authentication token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				httputil.WriteUnauthenticated(w, "Invalid authentication token")
				return
			}

			callerID, ok := claims["caller_id"].(string)
			if !ok || callerID == "" {
				httputil.WriteUnauthenticated(w, "Invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), CallerIDKey, callerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCallerIDFromContext extracts the caller ID from the request context.
func GetCallerIDFromContext(ctx context.Context) (string, bool) {
	callerID, ok := ctx.Value(CallerIDKey).(string)
	return callerID, ok
}
