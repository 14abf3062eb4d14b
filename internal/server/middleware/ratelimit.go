package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// HandshakeRateLimiter caps websocket upgrades per client IP with a
// token bucket. Inactive IPs are cleaned up in the background.
type HandshakeRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	logger   *slog.Logger
}

func NewHandshakeRateLimiter(logger *slog.Logger, perMinute int) *HandshakeRateLimiter {
	rl := &HandshakeRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		logger:   logger.With(slog.String("component", "handshake_rate_limiter")),
	}
	go rl.cleanupVisitors()
	return rl
}

func (rl *HandshakeRateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *HandshakeRateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware enforces the limit, returning 429 when exceeded.
func (rl *HandshakeRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if reqMeta, ok := ReqMetadataFrom(r.Context()); ok {
			ip = reqMeta.IP
		}
		if !rl.getVisitor(ip).Allow() {
			rl.logger.Warn("handshake rate limit exceeded", slog.String("ip", ip))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
