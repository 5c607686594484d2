// Package middleware provides HTTP middleware for the document service.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tedkulp/cartulary-go/internal/auth"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// ContextKeyUserID is the context key for the authenticated user ID.
	ContextKeyUserID contextKey = "user_id"
	// ContextKeySuperuser is the context key for the authenticated user's
	// superuser flag.
	ContextKeySuperuser contextKey = "is_superuser"
)

// UserIDFromContext extracts the user_id from the request context.
// Returns empty string if not present.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyUserID).(string)
	return v
}

// IsSuperuserFromContext reports whether the authenticated user bypasses
// access checks.
func IsSuperuserFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(ContextKeySuperuser).(bool)
	return v
}

// AuthMiddleware validates JWT tokens and injects the user claims into
// the request context.
//
// When authEnabled=true, requires a valid JWT in the Authorization header
// (Bearer <token>) and extracts user_id/is_superuser from its claims.
//
// When authEnabled=false (dev mode), accepts a user_id from a query
// parameter and treats the caller as a superuser, mirroring local
// development shortcuts without a running auth provider.
func AuthMiddleware(authSvc *auth.Service, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled {
				userID := r.URL.Query().Get("user_id")
				if userID == "" {
					userID = "dev-user"
				}
				ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
				ctx = context.WithValue(ctx, ContextKeySuperuser, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "invalid Authorization header format (expected: Bearer <token>)")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == "" {
				writeAuthError(w, http.StatusUnauthorized, "empty bearer token")
				return
			}

			claims, err := authSvc.VerifyToken(tokenStr)
			if err != nil {
				slog.Debug("JWT verification failed", "error", err)
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeySuperuser, claims.IsSuperuser)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperuser returns middleware that rejects non-superuser callers.
// Must be used after AuthMiddleware.
func RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsSuperuserFromContext(r.Context()) {
				writeAuthError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + http.StatusText(status) + `","message":"` + message + `"}`))
}
