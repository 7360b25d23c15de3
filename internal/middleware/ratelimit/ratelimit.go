// Package ratelimit throttles write requests per client with a fixed window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter allows a fixed number of requests per client per window.
type Limiter struct {
	mu           sync.Mutex
	windows      map[string]*window
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	limit           int
	period          time.Duration
	cleanupInterval time.Duration
}

type window struct {
	start time.Time
	used  int
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is how long until the client's window starts over.
	Reset time.Duration
}

type Config struct {
	RequestsPerMinute int
	// Window defaults to one minute; the limit scales with it.
	Window          time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		Window:            time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop
// when done.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	limit := int(math.Ceil(float64(config.RequestsPerMinute) * config.Window.Minutes()))
	if limit < 1 {
		limit = 1
	}
	rl := &Limiter{
		windows:         make(map[string]*window),
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
		limit:           limit,
		period:          config.Window,
		cleanupInterval: config.CleanupInterval,
	}
	go rl.cleanupLoop()
	return rl
}

// Take counts one request for key.
func (rl *Limiter) Take(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		w = &window{start: now}
		rl.windows[key] = w
	}

	d := Decision{Limit: rl.limit, Reset: w.start.Add(rl.period).Sub(now)}
	if w.used >= rl.limit {
		return d
	}
	w.used++
	d.Allowed = true
	d.Remaining = rl.limit - w.used
	return d
}

// Allow reports whether one more request from key fits in its window.
func (rl *Limiter) Allow(key string) bool {
	return rl.Take(key).Allowed
}

func (rl *Limiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropExpired()
		case <-rl.stopCleanup:
			return
		}
	}
}

// dropExpired forgets clients whose window has ended.
func (rl *Limiter) dropExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	dropped := 0
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.period {
			delete(rl.windows, key)
			dropped++
		}
	}
	return dropped
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Middleware rejects requests over the limit with 429. Every response carries
// X-RateLimit-Limit and X-RateLimit-Remaining; rejections add Retry-After in
// whole seconds. onLimit writes the rejection body and may be nil.
func (rl *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := rl.Take(key(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.Reset)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(reset time.Duration) int {
	secs := int(math.Ceil(reset.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
