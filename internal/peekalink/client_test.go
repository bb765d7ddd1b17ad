package peekalink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enzyme/peek/internal/linkpreview"
)

func TestHTTPTransport_Post(t *testing.T) {
	var gotAuth, gotContentType, gotPath, gotMethod string
	var gotBody previewRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"id":7,"title":"Hello"}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(Options{BaseURL: server.URL + "/", APIKey: "secret"})
	resp, err := transport.Post(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/preview" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody.Link != "https://example.com" {
		t.Errorf("link = %q", gotBody.Link)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(resp.Body), "Hello") {
		t.Errorf("resp = %d %s", resp.StatusCode, resp.Body)
	}
}

func TestHTTPTransport_ErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	resp, err := NewHTTPTransport(Options{BaseURL: server.URL}).Post(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHTTPTransport_BodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxBodySize+1024)))
	}))
	defer server.Close()

	resp, err := NewHTTPTransport(Options{BaseURL: server.URL}).Post(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(resp.Body) != maxBodySize {
		t.Errorf("body length = %d, want %d", len(resp.Body), maxBodySize)
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(done)

	transport := NewHTTPTransport(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	o := NewFetcher(transport, nil).Fetch(context.Background(), "https://example.com")
	if o.OK() || o.Failure.Type != linkpreview.ErrorTypeTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", o)
	}
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	o := NewFetcher(NewHTTPTransport(Options{BaseURL: url}), nil).Fetch(context.Background(), "https://example.com")
	if o.OK() || o.Failure.Type != linkpreview.ErrorTypeNetworkError {
		t.Fatalf("expected NETWORK_ERROR, got %+v", o)
	}
}

func TestHTTPTransport_RateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(Options{BaseURL: server.URL, RequestsPerSecond: 0.001, Burst: 1})
	if _, err := transport.Post(context.Background(), "https://a.com"); err != nil {
		t.Fatalf("first Post: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := transport.Post(ctx, "https://b.com")
	if err == nil {
		t.Fatal("expected the limiter to refuse the second request")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancellation: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected a deadline error, got %v", err)
	}
}

func TestFetcher_RateLimitedWaitIsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	fetcher := NewFetcher(NewHTTPTransport(Options{BaseURL: server.URL, RequestsPerSecond: 0.001, Burst: 1}), nil)
	if o := fetcher.Fetch(context.Background(), "https://a.com"); !o.OK() {
		t.Fatalf("first fetch failed: %+v", o.Failure)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	o := fetcher.Fetch(ctx, "https://b.com")
	if o.OK() {
		t.Fatal("expected the limiter to refuse the second fetch")
	}
	if o.Failure.Type != linkpreview.ErrorTypeTimeout {
		t.Errorf("type = %s, want %s", o.Failure.Type, linkpreview.ErrorTypeTimeout)
	}
}

func TestNewHTTPTransport_Defaults(t *testing.T) {
	transport := NewHTTPTransport(Options{})
	if transport.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q", transport.baseURL)
	}
	if transport.limiter != nil {
		t.Error("expected no limiter by default")
	}
	if transport.client.Timeout != defaultTimeout {
		t.Errorf("timeout = %v", transport.client.Timeout)
	}
}
