// Bearer JWT middleware.
// Reads Authorization: Bearer <token>, validates it, injects user_id and
// tenant_id into the request context via typed ctxkeys.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alphamind/gateway/internal/api/ctxkeys"
	pkgauth "github.com/alphamind/gateway/pkg/auth"
)

// AuthMiddleware rejects requests without a valid Bearer JWT.
// Used on all /api/v1/* routes.
//
// Flow:
//  1. Read "Authorization: Bearer <token>" header
//  2. Reject if missing or not Bearer scheme → 401
//  3. Parse + validate JWT → 401 on invalid/expired
//  4. Inject ctxkeys.UserID and ctxkeys.TenantID into context
//  5. Call next handler
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearerToken(r)
		if tokenString == "" {
			writeUnauthorized(w, "missing or invalid Authorization header")
			return
		}

		claims, err := pkgauth.ParseJWT(tokenString)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := r.Context()
		ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, claims.UserID)
		ctx = ctxkeys.WithValue(ctx, ctxkeys.TenantID, claims.TenantID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth injects identity when a valid Bearer token is present but
// never rejects. The core chat surface uses it: anonymous requests are
// served, authenticated ones get usage accounting.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString := extractBearerToken(r); tokenString != "" {
			if claims, err := pkgauth.ParseJWT(tokenString); err == nil {
				ctx := r.Context()
				ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, claims.UserID)
				ctx = ctxkeys.WithValue(ctx, ctxkeys.TenantID, claims.TenantID)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
// Returns empty string if the header is missing, wrong scheme, or empty.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	// Must start with "Bearer " (case-sensitive per RFC 7235)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// writeUnauthorized writes a 401 JSON response in the same envelope the
// handlers package uses.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": message}) //nolint:errcheck
}
