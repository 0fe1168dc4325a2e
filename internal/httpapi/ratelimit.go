package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultRateWindow = 15 * time.Minute
	defaultRateMax    = 120
)

type RateLimitConfig struct {
	Window time.Duration
	Max    int
	// TrustProxy reads the client address from X-Forwarded-For.
	TrustProxy bool
}

// RateLimiter applies a fixed window budget per client IP to /api/ requests.
type RateLimiter struct {
	limiter    *windowLimiter
	trustProxy bool
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter:    newWindowLimiter(cfg.Window, cfg.Max),
		trustProxy: cfg.TrustProxy,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r, l.trustProxy)
		allowed, remaining, reset := l.limiter.allow(ip)
		w.Header().Set("RateLimit-Limit", strconv.Itoa(l.limiter.max))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("RateLimit-Reset", strconv.Itoa(int(time.Until(reset).Round(time.Second).Seconds())))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(reset).Round(time.Second).Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type windowLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	windows map[string]*window
	now     func() time.Time
	sweptAt time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func newWindowLimiter(size time.Duration, max int) *windowLimiter {
	if size <= 0 {
		size = defaultRateWindow
	}
	if max <= 0 {
		max = defaultRateMax
	}
	return &windowLimiter{
		window:  size,
		max:     max,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// allow counts one hit for key and reports whether it is within budget,
// the hits left in the window and when the window resets.
func (l *windowLimiter) allow(key string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	if w.count > l.max {
		return false, 0, w.resetAt
	}
	return true, l.max - w.count, w.resetAt
}

// sweep drops finished windows at most once per window length.
func (l *windowLimiter) sweep(now time.Time) {
	if now.Sub(l.sweptAt) < l.window {
		return
	}
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
	l.sweptAt = now
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
