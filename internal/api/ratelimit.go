package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Auth endpoints run behind a per-IP limiter to slow credential stuffing:
// 30 requests per minute with a burst of 10.
const (
	defaultAuthRate  = rate.Limit(30.0 / 60.0)
	defaultAuthBurst = 10

	limiterCleanupEvery = 10 * time.Minute
	limiterMaxIdle      = time.Hour
)

type ipLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ipRateLimiter tracks one token bucket per client IP. Idle buckets are
// evicted opportunistically on lookup so the map stays bounded without a
// background goroutine.
type ipRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*ipLimiterEntry
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
}

func newIPRateLimiter(r rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters:    make(map[string]*ipLimiterEntry),
		rate:        r,
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

func (rl *ipRateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) > limiterCleanupEvery {
		rl.evict(limiterMaxIdle)
		rl.lastCleanup = time.Now()
	}

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

// evict drops buckets idle longer than maxIdle. The caller holds mu.
func (rl *ipRateLimiter) evict(maxIdle time.Duration) {
	for ip, entry := range rl.limiters {
		if time.Since(entry.lastAccess) > maxIdle {
			delete(rl.limiters, ip)
		}
	}
}

// Middleware rejects requests over the per-IP budget with 429
func (rl *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
