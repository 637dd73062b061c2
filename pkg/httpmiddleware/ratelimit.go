package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window for one key.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window counts requests of the current and previous fixed windows. The
// previous count is weighted by its overlap with the sliding window.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max    int
	size   time.Duration
	mu     sync.Mutex
	byKey  map[string]*window
	keyFor func(*http.Request) string
}

func newLimiter(cfg RateLimitConfig) *limiter {
	keyFor := cfg.KeyFunc
	if keyFor == nil {
		keyFor = ClientIP
	}
	return &limiter{
		max:    cfg.Max,
		size:   cfg.Window,
		byKey:  make(map[string]*window),
		keyFor: keyFor,
	}
}

// take records a request for key unless the limit is reached.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.byKey[key]
	if w == nil {
		w = &window{start: now.Truncate(l.size)}
		l.byKey[key] = w
	}
	switch elapsed := now.Sub(w.start); {
	case elapsed >= 2*l.size:
		w.start, w.prev, w.curr = now.Truncate(l.size), 0, 0
	case elapsed >= l.size:
		w.start, w.prev, w.curr = w.start.Add(l.size), w.curr, 0
	}

	weight := 1 - float64(now.Sub(w.start))/float64(l.size)
	used := w.prev*max(weight, 0) + w.curr
	reset = w.start.Add(l.size)
	if used >= float64(l.max) {
		return 0, reset, false
	}
	w.curr++
	return max(l.max-int(math.Ceil(used+1)), 0), reset, true
}

// sweep drops keys idle for two windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.byKey {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.byKey, key)
		}
	}
}

func (l *limiter) sweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

// RateLimit rejects clients exceeding cfg.Max requests per sliding window
// with 429. Every response carries the X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit with a background sweep of idle keys
// that stops when ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.sweepEvery(ctx, 2*l.size)
	return l.middleware()
}

func (l *limiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.take(l.keyFor(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				wait := max(time.Until(reset), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionOrIP keys shoppers by their session header or cookie, falling back
// to the client IP for anonymous requests.
func SessionOrIP(header, cookie string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id := r.Header.Get(header); id != "" {
			return "session:" + id
		}
		if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
			return "session:" + c.Value
		}
		return "ip:" + ClientIP(r)
	}
}
