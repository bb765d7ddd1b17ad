package ratelimit

import (
	"sync"
	"time"
)

// Rule names used by the API routes.
const (
	RuleRefresh     = "refresh"
	RuleOpenSession = "open_session"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Rule defines a named rate limit.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result contains rate limit status for a request.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	RetryIn   time.Duration
}

type entry struct {
	rule     string
	count    int
	windowAt time.Time
}

// Limiter implements fixed-window rate limiting per IP and rule.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	entries map[string]*entry
	clock   Clock
}

// NewLimiter creates a Limiter with the given rules. Rules with a
// non-positive limit or window are ignored.
func NewLimiter(rules []Rule) *Limiter {
	ruleMap := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if r.Limit <= 0 || r.Window <= 0 {
			continue
		}
		ruleMap[r.Name] = r
	}
	return &Limiter{
		rules:   ruleMap,
		entries: make(map[string]*entry),
		clock:   realClock{},
	}
}

// Allow checks whether a request from ip under the named rule is allowed.
// If no such rule exists, it returns (Result{}, true).
func (l *Limiter) Allow(ip, name string) (Result, bool) {
	rule, ok := l.rules[name]
	if !ok {
		return Result{}, true
	}

	now := l.clock.Now()
	key := ip + ":" + name

	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[key]
	if !exists || now.Sub(e.windowAt) >= rule.Window {
		// New window
		l.entries[key] = &entry{rule: name, count: 1, windowAt: now}
		return Result{Limit: rule.Limit, Remaining: rule.Limit - 1, ResetAt: now.Add(rule.Window)}, true
	}

	resetAt := e.windowAt.Add(rule.Window)

	if e.count >= rule.Limit {
		retryIn := rule.Window - now.Sub(e.windowAt)
		return Result{Limit: rule.Limit, Remaining: 0, ResetAt: resetAt, RetryIn: retryIn}, false
	}

	e.count++
	return Result{Limit: rule.Limit, Remaining: rule.Limit - e.count, ResetAt: resetAt}, true
}

// Cleanup removes expired entries. Call periodically to prevent unbounded growth.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		rule, ok := l.rules[e.rule]
		if !ok || now.Sub(e.windowAt) >= rule.Window {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
