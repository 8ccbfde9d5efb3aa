package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/openlims/limsgo/internal/config"
	"github.com/openlims/limsgo/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Principal is the authenticated actor attached to the request
// context: the pair the workflow service needs for every mutation.
type Principal struct {
	ID   string
	Role string
}

// AuthMiddleware verifies JWT tokens and attaches the principal
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			id, _ := claims["id"].(string)
			role, _ := claims["role"].(string)
			if id == "" {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, Principal{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom extracts the authenticated principal from a request
// context. The bool is false on unauthenticated requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(UserContextKey).(Principal)
	return p, ok
}
