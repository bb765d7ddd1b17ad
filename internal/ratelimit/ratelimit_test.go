package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(rules ...Rule) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(rules)
	l.clock = clock
	return l, clock
}

func TestAllow_WindowLimit(t *testing.T) {
	l, clock := newTestLimiter(Rule{Name: RuleRefresh, Limit: 2, Window: time.Minute})

	for i := range 2 {
		res, ok := l.Allow("1.2.3.4", RuleRefresh)
		if !ok {
			t.Fatalf("request %d denied", i)
		}
		if res.Remaining != 1-i {
			t.Errorf("request %d remaining = %d", i, res.Remaining)
		}
	}

	res, ok := l.Allow("1.2.3.4", RuleRefresh)
	if ok {
		t.Fatal("third request allowed")
	}
	if res.RetryIn != time.Minute {
		t.Errorf("retryIn = %v", res.RetryIn)
	}

	// Other clients have their own window.
	if _, ok := l.Allow("5.6.7.8", RuleRefresh); !ok {
		t.Error("other IP denied")
	}

	clock.Advance(time.Minute)
	if _, ok := l.Allow("1.2.3.4", RuleRefresh); !ok {
		t.Error("request in new window denied")
	}
}

func TestAllow_UnknownRule(t *testing.T) {
	l, _ := newTestLimiter(Rule{Name: RuleRefresh, Limit: 1, Window: time.Minute})

	for range 5 {
		if _, ok := l.Allow("1.2.3.4", "other"); !ok {
			t.Fatal("unknown rule should not limit")
		}
	}
}

func TestNewLimiter_IgnoresDisabledRules(t *testing.T) {
	l, _ := newTestLimiter(Rule{Name: RuleOpenSession, Limit: 0, Window: time.Minute})

	for range 3 {
		if _, ok := l.Allow("1.2.3.4", RuleOpenSession); !ok {
			t.Fatal("zero-limit rule should be ignored")
		}
	}
}

func TestCleanup(t *testing.T) {
	l, clock := newTestLimiter(
		Rule{Name: RuleRefresh, Limit: 5, Window: time.Minute},
		Rule{Name: RuleOpenSession, Limit: 5, Window: time.Hour},
	)

	l.Allow("1.2.3.4", RuleRefresh)
	l.Allow("1.2.3.4", RuleOpenSession)
	clock.Advance(2 * time.Minute)
	l.Cleanup()

	if n := l.size(); n != 1 {
		t.Errorf("entries after cleanup = %d, want 1", n)
	}
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(Rule{Name: RuleRefresh, Limit: 1, Window: 30 * time.Second})
	h := Middleware(l, RuleRefresh)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/x/refresh", nil)
	req.RemoteAddr = "1.2.3.4:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("headers = %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestMiddleware_NilLimiter(t *testing.T) {
	h := Middleware(nil, RuleRefresh)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}
