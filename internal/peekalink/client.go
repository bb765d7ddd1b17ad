// Package peekalink resolves previews through the Peekalink HTTP API.
package peekalink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.peekalink.io"
	maxBodySize    = 1 << 20 // 1 MB
	defaultTimeout = 10 * time.Second
)

// RawResponse is an undecoded provider response.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Transport posts a preview request for link. An error means the round
// trip itself failed; any HTTP status is returned as a RawResponse.
type Transport interface {
	Post(ctx context.Context, link string) (*RawResponse, error)
}

// HTTPTransport talks to the Peekalink API over HTTP.
type HTTPTransport struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

var _ Transport = (*HTTPTransport)(nil)

// Options configures an HTTPTransport.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// NewHTTPTransport creates a transport from opts.
func NewHTTPTransport(opts Options) *HTTPTransport {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	t := &HTTPTransport{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		client:  client,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return t
}

type previewRequest struct {
	Link string `json:"link"`
}

func (t *HTTPTransport) Post(ctx context.Context, link string) (*RawResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			// Wait refuses up front when the deadline is too close, without
			// returning a context error.
			if ctx.Err() == nil {
				if _, ok := ctx.Deadline(); ok {
					err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
				}
			}
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(previewRequest{Link: link})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/preview", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &RawResponse{StatusCode: resp.StatusCode, Body: data}, nil
}
