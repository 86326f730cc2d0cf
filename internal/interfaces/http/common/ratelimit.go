package common

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig defines per-client throttling.
type RateLimiterConfig struct {
	RequestsPerMinute int
	Burst             int
	IdleTTL           time.Duration
}

// RateObserver is notified of rejected requests.
type RateObserver interface {
	RecordRateLimited()
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are dropped
// by a background loop until Stop is called.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	logger   *zap.Logger
	observer RateObserver

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
	now      func() time.Time
}

func NewRateLimiter(cfg RateLimiterConfig, logger *zap.Logger, observer RateObserver) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rl := &RateLimiter{
		limit:    rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:    cfg.Burst,
		ttl:      cfg.IdleTTL,
		logger:   logger,
		observer: observer,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if rl.allow(ip) {
			next.ServeHTTP(w, r)
			return
		}
		if rl.observer != nil {
			rl.observer.RecordRateLimited()
		}
		rl.logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
		w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
		WriteError(rl.logger, w, http.StatusTooManyRequests, "Too many requests", "Please wait before sending another message")
	})
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastAccess = rl.now()
	rl.mu.Unlock()
	return entry.limiter.Allow()
}

func (rl *RateLimiter) retryAfterSeconds() int {
	seconds := int(math.Ceil(1.0 / float64(rl.limit)))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.ttl)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}
