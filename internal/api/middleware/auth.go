package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/slateci/slate-federation/internal/authz"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/metrics"
)

type contextKey string

const userContextKey contextKey = "slate_user"

// publicPaths never require a bearer token.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Auth resolves the request's bearer token (Authorization header or "token"
// query parameter, per extractBearer) to a models.User via the
// authorization kernel and places it in the request context. Every route
// except the ones listed in publicPaths requires a valid token (§6): a
// missing or unrecognized token is rejected before the handler ever runs,
// matching the reference's "findUserByToken fails closed" behavior.
func Auth(kernel *authz.Kernel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearer(r)
			if token == "" {
				metrics.AuthLoginAttemptsTotal.WithLabelValues("failure").Inc()
				writeUnauthenticated(w)
				return
			}

			user, err := kernel.Authenticate(r.Context(), token)
			if err != nil {
				metrics.AuthLoginAttemptsTotal.WithLabelValues("failure").Inc()
				writeUnauthenticated(w)
				return
			}

			metrics.AuthLoginAttemptsTotal.WithLabelValues("success").Inc()
			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthenticated writes §7's Unauthenticated envelope. Per §7 this
// kind maps to 403, not the more conventional 401 - the reference service
// never distinguishes "who are you" from "you can't do that" at the wire
// level.
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"kind":    "Error",
		"message": "Not authorized",
	})
}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext retrieves the user Auth placed in the request context. ok
// is false for requests to publicPaths, which never authenticate.
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userContextKey).(models.User)
	return u, ok
}

// extractBearer reads the access token from the Authorization header
// ("Bearer <token>") or, failing that, the "token" query parameter (§6).
func extractBearer(r *http.Request) string {
	s := r.Header.Get("Authorization")
	if s == "" {
		return r.URL.Query().Get("token")
	}
	const prefix = "Bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return ""
}
