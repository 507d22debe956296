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

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client token buckets. Each client may burst
// Max requests and regains Max tokens per Window.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc identifies the client; defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter holds the buckets of all clients seen recently.
type RateLimiter struct {
	cfg      RateLimitConfig
	every    rate.Limit
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewRateLimiter returns a RateLimiter. Max and Window must be positive.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &RateLimiter{
		cfg:      cfg,
		every:    rate.Every(cfg.Window / time.Duration(cfg.Max)),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (rl *RateLimiter) reserve(key string) *rate.Reservation {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.cfg.Max)}
		rl.visitors[key] = v
	}
	v.seen = now
	return v.limiter.ReserveN(now, 1)
}

// Evict forgets clients idle for longer than Window, whose buckets are full
// again anyway.
func (rl *RateLimiter) Evict() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cfg.Window)
	n := 0
	for key, v := range rl.visitors {
		if v.seen.Before(cutoff) {
			delete(rl.visitors, key)
			n++
		}
	}
	return n
}

// RunEviction calls Evict every Window until ctx is done.
func (rl *RateLimiter) RunEviction(ctx context.Context) error {
	ticker := time.NewTicker(rl.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rl.Evict()
		}
	}
}

// Middleware rejects requests beyond the client's budget with 429 and a
// Retry-After header.
func (rl *RateLimiter) Middleware() Middleware {
	limit := strconv.Itoa(rl.cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := rl.reserve(rl.cfg.KeyFunc(r))
			w.Header().Set("X-RateLimit-Limit", limit)

			if delay := res.DelayFrom(rl.now()); delay > 0 {
				res.CancelAt(rl.now())
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
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
