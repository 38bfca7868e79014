package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"charger-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than the configured TTL are dropped, so a client that comes back
// later starts with a full burst.
type RateLimiter struct {
	mu         sync.Mutex
	visitors   map[string]*visitor
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	trustProxy bool
	lastSweep  time.Time
	now        func() time.Time
	log        *zap.Logger
}

// NewRateLimiter allows config.PerMinute requests per IP with config.Burst.
// PerMinute <= 0 means unlimited. X-Real-IP is only honoured with TrustProxy.
func NewRateLimiter(config utils.RateLimitConfig, log *zap.Logger) *RateLimiter {
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if config.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.PerMinute))
	}
	idle := time.Duration(config.IdleMinutes) * time.Minute
	if idle <= 0 {
		idle = defaultIdleTTL
	}
	return &RateLimiter{
		visitors:   make(map[string]*visitor),
		limit:      limit,
		burst:      burst,
		idleTTL:    idle,
		trustProxy: config.TrustProxy,
		now:        time.Now,
		log:        log,
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweep(now)
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep must be called with mu held.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		if !rl.allow(ip) {
			rl.log.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestID(r)),
			)
			utils.ResponseTooManyRequests(w, "Too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.trustProxy {
		if fwd := strings.TrimSpace(r.Header.Get("X-Real-IP")); fwd != "" {
			return fwd
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
