// Package ratelimit caps requests per client in fixed one-minute windows.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// StaleAfter drops clients idle longer than this on cleanup.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		StaleAfter:        10 * time.Minute,
	}
}

type client struct {
	windowStart time.Time
	lastSeen    time.Time
	requests    int
}

// Limiter tracks request counts per client key.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	cfg     Config
	now     func() time.Time
	limited atomic.Int64
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	return &Limiter{
		clients: make(map[string]*client),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Allow records a request from key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= window {
		l.clients[key] = &client{windowStart: now, lastSeen: now, requests: 1}
		return true
	}
	c.lastSeen = now
	c.requests++
	if c.requests > l.cfg.RequestsPerMinute {
		l.limited.Add(1)
		return false
	}
	return true
}

// retryAfter is the number of seconds until key's window resets.
func (l *Limiter) retryAfter(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[key]
	if !ok {
		return 0
	}
	left := window - l.now().Sub(c.windowStart)
	if left < time.Second {
		return 1
	}
	return int(left.Seconds())
}

// Cleanup drops clients idle longer than StaleAfter and returns how many.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.cfg.StaleAfter)
	n := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			n++
		}
	}
	return n
}

// Run cleans up periodically until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Limited counts rejected requests since start.
func (l *Limiter) Limited() int64 { return l.limited.Load() }

// Middleware rejects over-limit requests. onLimit writes the rejection body;
// Retry-After is already set when it runs.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !l.Allow(k) {
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter(k)))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
