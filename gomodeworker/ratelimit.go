package gomodeworker

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// perIPLimiter rate-limits DebugMux requests by remote address: a debug
// mux is meant for local scrapers and operators, not public traffic, so a
// small per-IP token bucket is enough to keep a misbehaving client from
// hammering it.
type perIPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipEntry
	r        rate.Limit
	burst    int
}

type ipEntry struct {
	limiter *rate.Limiter
	seenAt  time.Time
}

// newPerIPLimiter builds a limiter allowing burst requests immediately,
// refilling at r per second thereafter, per remote IP.
func newPerIPLimiter(r rate.Limit, burst int) *perIPLimiter {
	return &perIPLimiter{
		limiters: make(map[string]*ipEntry),
		r:        r,
		burst:    burst,
	}
}

func (l *perIPLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.r, l.burst)}
		l.limiters[ip] = entry
	}
	entry.seenAt = time.Now()
	return entry.limiter.Allow()
}

// evictStale drops entries not seen in the last d, bounding the map's
// growth from one-off scanners.
func (l *perIPLimiter) evictStale(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-d)
	for ip, entry := range l.limiters {
		if entry.seenAt.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

func rateLimitMiddleware(limiter *perIPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !limiter.allow(host) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
