package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	cfg.SweepInterval = time.Hour
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestConfigDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	want := Config{RequestsPerMinute: 60, Window: time.Minute, IdleAfter: 10 * time.Minute, SweepInterval: 5 * time.Minute}
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}

	l := NewLimiter(Config{})
	l.Stop()
	l.Stop()
}

func TestLimiter_Allow(t *testing.T) {
	l, now := newTestLimiter(t, Config{RequestsPerMinute: 3})

	for i := 1; i <= 3; i++ {
		if ok, _ := l.Allow("1.1.1.1"); !ok {
			t.Fatalf("request %d refused", i)
		}
	}

	*now = now.Add(20 * time.Second)
	ok, wait := l.Allow("1.1.1.1")
	if ok {
		t.Fatal("fourth request in the window was allowed")
	}
	if wait != 40*time.Second {
		t.Errorf("wait = %v, want 40s", wait)
	}

	if ok, _ := l.Allow("2.2.2.2"); !ok {
		t.Error("a different client shares the exhausted window")
	}

	*now = now.Add(40 * time.Second)
	if ok, _ := l.Allow("1.1.1.1"); !ok {
		t.Error("the window did not reset")
	}
}

func TestLimiter_CustomWindow(t *testing.T) {
	l, now := newTestLimiter(t, Config{RequestsPerMinute: 1, Window: 10 * time.Second})

	l.Allow("k")
	if ok, wait := l.Allow("k"); ok || wait != 10*time.Second {
		t.Errorf("Allow = %v, %v; want refused for 10s", ok, wait)
	}
	*now = now.Add(10 * time.Second)
	if ok, _ := l.Allow("k"); !ok {
		t.Error("expected a fresh window after 10s")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l, now := newTestLimiter(t, Config{RequestsPerMinute: 10})
	l.Allow("1.1.1.1")
	*now = now.Add(5 * time.Minute)
	l.Allow("2.2.2.2")

	*now = now.Add(6 * time.Minute)
	l.sweep()

	if got := l.Tracked(); got != 1 {
		t.Errorf("Tracked() = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l, _ := newTestLimiter(t, Config{RequestsPerMinute: 1})
	key := func(*http.Request) string { return "1.1.1.1" }
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		method     string
		wantStatus int
		retryAfter string
	}{
		{http.MethodPost, http.StatusNoContent, ""},
		{http.MethodDelete, http.StatusTooManyRequests, "60"},
		{http.MethodGet, http.StatusNoContent, ""},
		{http.MethodPut, http.StatusTooManyRequests, "60"},
		{http.MethodGet, http.StatusNoContent, ""},
	}

	h := l.Middleware(key, WritesOnly, nil)(ok)
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/v1/transactions", nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("#%d %s = %d, want %d", i, tt.method, rec.Code, tt.wantStatus)
		}
		if got := rec.Header().Get("Retry-After"); got != tt.retryAfter {
			t.Errorf("#%d %s Retry-After = %q, want %q", i, tt.method, got, tt.retryAfter)
		}
	}
}

func TestLimiter_MiddlewareCustomRefusal(t *testing.T) {
	l, _ := newTestLimiter(t, Config{RequestsPerMinute: 1})
	refused := 0
	h := l.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		nil,
		func(w http.ResponseWriter, r *http.Request) {
			refused++
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if refused != 2 {
		t.Errorf("onLimit called %d times, want 2", refused)
	}
}
