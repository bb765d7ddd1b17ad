package linkpreview

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/enzyme/peek/internal/linkpreview"

// Fetcher resolves a single URL. Implementations never fail outright: every
// problem is reported as a failed Outcome.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Outcome
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) Outcome

func (f FetcherFunc) Fetch(ctx context.Context, url string) Outcome {
	return f(ctx, url)
}

// Result is a resolved batch. Outcomes holds one entry per input URL in
// input order; Items and OverallError are what should be displayed.
type Result struct {
	Outcomes     []Outcome
	Items        []Outcome
	OverallError string
}

// Resolver drives concurrent per-URL fetches through a Cache.
type Resolver struct {
	fetcher        Fetcher
	cache          *Cache
	maxConcurrency int
	logger         *slog.Logger

	tracer    trace.Tracer
	cacheHits metric.Int64Counter
	fetches   metric.Int64Counter
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMaxConcurrency caps the number of fetches in flight for one batch.
// Zero or negative means unbounded.
func WithMaxConcurrency(n int) ResolverOption {
	return func(r *Resolver) { r.maxConcurrency = n }
}

// WithLogger sets the logger used for batch diagnostics.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver that reads from and writes to cache.
func NewResolver(fetcher Fetcher, cache *Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		cache:   cache,
		logger:  slog.Default(),
		tracer:  otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}

	meter := otel.Meter(instrumentationName)
	var err error
	r.cacheHits, err = meter.Int64Counter("peek.cache.hits",
		metric.WithDescription("Preview lookups served from the session cache"))
	if err != nil {
		r.cacheHits = noop.Int64Counter{}
	}
	r.fetches, err = meter.Int64Counter("peek.fetch.outcomes",
		metric.WithDescription("Preview fetches by outcome"))
	if err != nil {
		r.fetches = noop.Int64Counter{}
	}

	return r
}

// Resolve resolves every URL concurrently and waits for all of them. When
// useCache is set, cached successes are returned without fetching. Only
// successes are written to the cache.
func (r *Resolver) Resolve(ctx context.Context, urls []string, useCache bool) Result {
	if len(urls) == 0 {
		return Result{Outcomes: []Outcome{}, Items: []Outcome{}}
	}

	ctx, span := r.tracer.Start(ctx, "linkpreview.Resolve", trace.WithAttributes(
		attribute.Int("preview.urls", len(urls)),
		attribute.Bool("preview.use_cache", useCache),
	))
	defer span.End()

	outcomes := make([]Outcome, len(urls))

	var g errgroup.Group
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for i, url := range urls {
		g.Go(func() error {
			outcomes[i] = r.resolveOne(ctx, url, useCache)
			return nil
		})
	}
	_ = g.Wait()

	items, overallError := Aggregate(outcomes)

	summary := Summarize(outcomes)
	span.SetAttributes(
		attribute.Int("preview.successes", summary.Successful),
		attribute.Int("preview.failures", summary.Failed),
	)
	if overallError != "" {
		span.SetStatus(codes.Error, overallError)
	}

	r.logger.Debug("resolved preview batch",
		"urls", len(urls),
		"use_cache", useCache,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"overall_error", overallError,
	)

	return Result{Outcomes: outcomes, Items: items, OverallError: overallError}
}

func (r *Resolver) resolveOne(ctx context.Context, url string, useCache bool) Outcome {
	if useCache {
		if rec, ok := r.cache.Get(url); ok {
			r.cacheHits.Add(ctx, 1)
			return Succeeded(rec)
		}
	}

	o := r.fetcher.Fetch(ctx, url)
	if o.OK() {
		r.cache.Put(url, *o.Record)
		r.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
		return o
	}

	if o.Failure == nil {
		o = Failed(url, ErrorTypeUnknown, "Failed to fetch preview")
	}
	r.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(o.Failure.Type))))
	r.logger.Debug("preview fetch failed",
		"url", url,
		"error_type", o.Failure.Type,
		"error", o.Failure.Message,
	)
	return o
}
