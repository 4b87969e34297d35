/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per authenticated user, or per remote address for anonymous ones
type RateLimiter struct {
	visitors sync.Map // key -> *visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen lockedTime
}

// lockedTime is a time.Time safe to update from concurrent requests
type lockedTime struct {
	mutex sync.Mutex
	t     time.Time
}

func (a *lockedTime) Store(t time.Time) {
	a.mutex.Lock()
	a.t = t
	a.mutex.Unlock()
}

func (a *lockedTime) Load() time.Time {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.t
}

// NewRateLimiter allows perMinute requests per key on average, with bursts of burst.
// perMinute <= 0 disables the limiter.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	return &RateLimiter{rps: limit, burst: burst}
}

func (l *RateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.visitors.Load(key); ok {
		vi := v.(*visitor)
		vi.lastSeen.Store(time.Now())
		return vi.limiter
	}
	vi := &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
	vi.lastSeen.Store(time.Now())
	actual, _ := l.visitors.LoadOrStore(key, vi)
	return actual.(*visitor).limiter
}

// Cleanup forgets the keys idle for longer than idle, every interval, until ctx is done
func (l *RateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-idle)
			l.visitors.Range(func(k, v any) bool {
				if v.(*visitor).lastSeen.Load().Before(cutoff) {
					l.visitors.Delete(k)
				}
				return true
			})
		}
	}
}

// Middleware answers 429 once the key of the request ran out of tokens
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.getLimiter(requestKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestKey(r *http.Request) string {
	if user, ok := CurrentUser(r.Context()); ok {
		return "user:" + strconv.FormatInt(int64(user.ID), 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
