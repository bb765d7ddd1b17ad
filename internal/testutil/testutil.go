package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/enzyme/peek/internal/database"
	"github.com/enzyme/peek/internal/linkpreview"
)

// TestDB creates an in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("running migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db.DB
}

// CreateTestEntry stores content directly in the database.
func CreateTestEntry(t *testing.T, db *sql.DB, id string, content any) {
	t.Helper()

	data, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshaling test entry: %v", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.ExecContext(context.Background(), `
		INSERT INTO entries (id, content, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, id, string(data), now, now)
	if err != nil {
		t.Fatalf("creating test entry: %v", err)
	}
}

// FakeFetcher is a linkpreview.Fetcher with scripted outcomes. URLs without
// a scripted outcome resolve to a success titled after the URL.
type FakeFetcher struct {
	mu       sync.Mutex
	outcomes map[string]linkpreview.Outcome
	calls    map[string]int
	gates    map[string]chan struct{}
	total    atomic.Int64
}

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		outcomes: make(map[string]linkpreview.Outcome),
		calls:    make(map[string]int),
		gates:    make(map[string]chan struct{}),
	}
}

// Hold blocks fetches of url until the returned release func is called.
func (f *FakeFetcher) Hold(url string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[url] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Succeed scripts a success for url.
func (f *FakeFetcher) Succeed(url, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[url] = linkpreview.Succeeded(linkpreview.Record{ID: url, URL: url, OriginalURL: url, Title: title})
}

// Fail scripts a failure for url.
func (f *FakeFetcher) Fail(url string, errType linkpreview.ErrorType, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[url] = linkpreview.Failed(url, errType, message)
}

func (f *FakeFetcher) Fetch(ctx context.Context, url string) linkpreview.Outcome {
	f.total.Add(1)

	f.mu.Lock()
	f.calls[url]++
	o, ok := f.outcomes[url]
	gate := f.gates[url]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return linkpreview.Failed(url, linkpreview.ErrorTypeTimeout, linkpreview.MessageTimeout)
		}
	}

	if !ok {
		return linkpreview.Succeeded(linkpreview.Record{ID: url, URL: url, OriginalURL: url, Title: "Title of " + url})
	}
	return o
}

// Calls returns how many times url was fetched.
func (f *FakeFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// TotalCalls returns the number of fetches across all URLs.
func (f *FakeFetcher) TotalCalls() int {
	return int(f.total.Load())
}

// WaitForCalls polls until url has been fetched at least n times.
func (f *FakeFetcher) WaitForCalls(t *testing.T, url string, n int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for f.Calls(url) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d fetches of %s (got %d)", n, url, f.Calls(url))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
