package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// otpLimiter throttles OTP sends per patient IP with a token bucket. The
// clinic backend rate-limits too, but rejecting here avoids burning upstream
// SMS quota on abusive clients.
type otpLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newOTPLimiter(rate float64, burst int) *otpLimiter {
	l := &otpLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
	go l.evictLoop()
	return l
}

func (l *otpLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: float64(l.burst), seen: now}
		l.buckets[ip] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictLoop drops buckets idle for 10 minutes so the map stays bounded.
func (l *otpLimiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		cutoff := l.now().Add(-10 * time.Minute)
		for ip, b := range l.buckets {
			if b.seen.Before(cutoff) {
				delete(l.buckets, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit rejects requests above rate req/sec per client IP with 429. Used
// on the OTP send route only; slot searches are read-only and stay unmetered.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newOTPLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// chi's RealIP middleware rewrites RemoteAddr, but keep the
			// header check for deployments that skip it.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"message": "too many verification requests, please wait a moment",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
