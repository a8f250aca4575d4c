package middleware

import (
	"log/slog"
	"net/http"

	"github.com/slateci/slate-federation/internal/audit"
)

// responseRecorder wraps http.ResponseWriter to capture status code.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// AuditLog returns middleware that logs mutating operations (POST, PUT,
// DELETE) as structured audit lines via internal/audit. GET/HEAD and the
// public health/metrics routes are never audited.
func AuditLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := r.Method
			if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			userID, userName, requestIP := "", "anonymous", ""
			if u, ok := UserFromContext(r.Context()); ok {
				userID, userName, requestIP = audit.RequestInfoForUser(r, u)
			} else {
				_, _, requestIP = audit.RequestInfo(r)
			}
			audit.Log(log, r, userID, userName, requestIP, rec.statusCode)
		})
	}
}
