package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
)

// SessionKeyPrefix namespaces session tokens in Redis.
const SessionKeyPrefix = "session:"

var sessionClient *redis.Client

// InitAuthMiddleware wires the Redis client used for session lookups.
func InitAuthMiddleware(client *redis.Client) {
	sessionClient = client
}

// AuthMiddleware resolves the bearer token to a server-side session and puts
// the owning user's ID on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		if sessionClient == nil {
			http.Error(w, "Session store unavailable", http.StatusServiceUnavailable)
			return
		}

		userID, err := sessionClient.Get(r.Context(), SessionKeyPrefix+parts[1]).Result()
		if err != nil {
			http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
