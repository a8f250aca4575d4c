// Package middleware provides request body size limiting.
package middleware

import "net/http"

// DefaultMaxBodyBytes is a 512KB request body size: the largest request
// bodies this domain sees are install/secret-create payloads (YAML config,
// secret key/value maps), never bulk file uploads. The server does not use
// it; cmd/slate-apid caps bodies at Config.BodyLimitBytes (default 5MB).
const DefaultMaxBodyBytes = 512 * 1024

// MaxBodySize returns middleware capping request body size to max bytes.
// Applies to any request with a body; GET/HEAD/DELETE typically have none.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}
