package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const rateLimitWindow = time.Minute

// rateLimiter — скользящее окно по ключу.
type rateLimiter struct {
	mu     sync.Mutex
	times  map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{times: make(map[string][]time.Time), max: max, window: window, now: time.Now}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-r.window)
	slice := r.times[key]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= r.max {
		r.times[key] = slice
		return false
	}
	r.times[key] = append(slice, now)
	return true
}

// sweep выкидывает ключи без событий в окне, чтобы карта не росла бесконечно.
func (r *rateLimiter) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	for k, ts := range r.times {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(r.times, k)
		}
	}
}

// RateLimitAPI ограничивает запросы по IP (perMinute) и по user_id (perMinute/2, если он уже в контексте). 429 при превышении.
func RateLimitAPI(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 300
	}
	byIP := newRateLimiter(perMinute, rateLimitWindow)
	byUser := newRateLimiter(max(perMinute/2, 1), rateLimitWindow)
	var calls int
	var callsMu sync.Mutex
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callsMu.Lock()
			calls++
			if calls%1000 == 0 {
				byIP.sweep()
				byUser.sweep()
			}
			callsMu.Unlock()

			if !byIP.allow(clientIP(r)) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			if userID := GetUserID(r.Context()); userID != "" && !byUser.allow(userID) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP: X-Real-Ip (chi RealIP уже переписал RemoteAddr, но заголовок надёжнее за прокси), иначе хост из RemoteAddr.
func clientIP(r *http.Request) string {
	if x := r.Header.Get("X-Real-Ip"); x != "" {
		return x
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
