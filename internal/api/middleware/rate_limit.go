package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/slateci/slate-federation/internal/config"
)

// Per-IP rate limiting, split into two tiers: mutating requests (install,
// delete, scale, secret create — anything that reaches Kubernetes/Helm) get
// the tighter limit, read-only GETs get the looser one.

type rateLimitTier int

const (
	tierMutating rateLimitTier = iota
	tierRead
)

func tierForRequest(r *http.Request) rateLimitTier {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return tierRead
	default:
		return tierMutating
	}
}

// apiRateLimiter holds per-IP limiters per tier.
type apiRateLimiter struct {
	mu        sync.Mutex
	mutating  map[string]*rate.Limiter
	read      map[string]*rate.Limiter
	mutLimit  rate.Limit
	mutBurst  int
	readLimit rate.Limit
	readBurst int
}

func newAPIRateLimiter(cfg *config.Config) *apiRateLimiter {
	return &apiRateLimiter{
		mutating:  make(map[string]*rate.Limiter),
		read:      make(map[string]*rate.Limiter),
		mutLimit:  rate.Limit(cfg.MutatingRateLimitPerSec),
		mutBurst:  cfg.MutatingRateLimitBurst,
		readLimit: rate.Limit(cfg.ReadRateLimitPerSec),
		readBurst: cfg.ReadRateLimitBurst,
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}

func (l *apiRateLimiter) getLimiter(ip string, t rateLimitTier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.read
	limit, burst := l.readLimit, l.readBurst
	if t == tierMutating {
		m = l.mutating
		limit, burst = l.mutLimit, l.mutBurst
	}
	if lim, ok := m[ip]; ok {
		return lim
	}
	lim := rate.NewLimiter(limit, burst)
	m[ip] = lim
	return lim
}

func (l *apiRateLimiter) limitHeader(t rateLimitTier) int {
	if t == tierMutating {
		return int(l.mutLimit)
	}
	return int(l.readLimit)
}

// RateLimit returns middleware limiting requests per client IP, excluding
// /healthz and /metrics. Responses that exceed the limit get 429 with
// Retry-After and X-RateLimit-* headers.
func RateLimit(cfg *config.Config) func(http.Handler) http.Handler {
	limiter := newAPIRateLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			ip := getClientIP(r)
			tier := tierForRequest(r)
			lim := limiter.getLimiter(ip, tier)
			reservation := lim.Reserve()
			if !reservation.OK() {
				writeTooManyRequests(w, limiter.limitHeader(tier), 60)
				return
			}
			delay := reservation.Delay()
			if delay > 0 {
				reservation.Cancel()
				retryAfter := int(delay.Seconds()) + 1
				if retryAfter > 60 {
					retryAfter = 60
				}
				writeTooManyRequests(w, limiter.limitHeader(tier), retryAfter)
				return
			}
			tokens := int(lim.Tokens())
			if tokens < 0 {
				tokens = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.limitHeader(tier)))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(tokens))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooManyRequests(w http.ResponseWriter, limit, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(retryAfter)*time.Second).Unix(), 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"kind":"Error","message":"too many requests, retry later"}`))
}
