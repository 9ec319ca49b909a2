// Package ratelimit throttles requests per client with a fixed window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config sets the budget of one client. Zero fields take the defaults.
type Config struct {
	RequestsPerMinute int
	// Window defaults to a minute; RequestsPerMinute is the budget per Window.
	Window time.Duration
	// Clients idle for IdleAfter are forgotten by the sweeper.
	IdleAfter     time.Duration
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = 10 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	return c
}

type window struct {
	start time.Time
	seen  time.Time
	count int
}

type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	quit     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts the idle-client sweeper; Stop ends it.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*window),
		quit:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow spends one request of key's budget. When the budget is gone it
// reports how long until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.seen = now
	w.count++

	if w.count <= l.cfg.RequestsPerMinute {
		return true, 0
	}
	return false, w.start.Add(l.cfg.Window).Sub(now)
}

// Tracked is the number of clients with a live window.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.quit:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleAfter)
	for key, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// WritesOnly selects the methods that change state.
func WritesOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware throttles the requests picked by applies (all when nil),
// keyed by clientKey. Refused requests get a Retry-After header and are
// handed to onLimit, or answered with a plain 429 when onLimit is nil.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, applies func(*http.Request) bool, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies != nil && !applies(r) {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := l.Allow(clientKey(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
