package http

import (
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// requireAdmin rejects requests that don't carry a valid admin session token.
func requireAdmin(authSvc AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authSvc.Check(bearerToken(r)) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, authRequiredResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// adminHost serves the admin page for requests addressed to the admin
// hostname root. Everything else falls through to the regular routes.
func adminHost(hostPrefix, publicDir string) func(http.Handler) http.Handler {
	page := filepath.Join(publicDir, "admin.html")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}

			if strings.HasPrefix(host, hostPrefix) && r.URL.Path == "/" {
				http.ServeFile(w, r, page)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ipRateLimiter keeps a token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}

	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *ipRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}

	return lim
}

// Handler rejects requests exceeding the per-IP rate with 429. It relies on
// the RealIP middleware having normalized RemoteAddr.
func (l *ipRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !l.limiter(ip).Allow() {
			w.Header().Set("Retry-After", "1")
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, rateLimitedResponse)
			return
		}

		next.ServeHTTP(w, r)
	})
}
