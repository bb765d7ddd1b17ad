package linkpreview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/enzyme/peek/internal/extract"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateIdle                 State = "idle"
	StateLoading              State = "loading"
	StateAllSuccess           State = "all_success"
	StateAllFailedCommonCause State = "all_failed_common_cause"
	StateMixed                State = "mixed_or_heterogeneous"
)

// View is the derived state handed to the presentation layer.
type View struct {
	URLs         []string  `json:"urls"`
	Items        []Outcome `json:"items"`
	Loading      bool      `json:"loading"`
	OverallError string    `json:"overallError"`
	State        State     `json:"state"`
	Summary      Summary   `json:"summary"`
	Subtitle     string    `json:"subtitle,omitempty"`
	Generation   uint64    `json:"generation"`
}

// Empty reports whether the current content has no URLs at all.
func (v View) Empty() bool {
	return len(v.URLs) == 0
}

// Session is one mounted preview view. It owns its Cache, so cached
// previews live exactly as long as the Session.
//
// Every load takes a new generation number. A batch that completes after a
// newer one was dispatched is discarded, and Loading stays true until the
// newest batch completes.
type Session struct {
	resolver *Resolver
	cache    *Cache
	onChange func(View)
	logger   *slog.Logger

	mu   sync.Mutex
	urls []string
	gen  uint64
	view View
}

type sessionOptions struct {
	onChange       func(View)
	logger         *slog.Logger
	maxConcurrency int
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithOnChange registers fn to be called with a snapshot after every state
// change. fn runs outside the session lock.
func WithOnChange(fn func(View)) SessionOption {
	return func(o *sessionOptions) { o.onChange = fn }
}

// WithSessionLogger sets the logger for the session and its resolver.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = l }
}

// WithSessionConcurrency caps fetches in flight per batch.
func WithSessionConcurrency(n int) SessionOption {
	return func(o *sessionOptions) { o.maxConcurrency = n }
}

// NewSession creates an idle session with an empty cache.
func NewSession(fetcher Fetcher, opts ...SessionOption) *Session {
	o := sessionOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cache := NewCache()
	return &Session{
		resolver: NewResolver(fetcher, cache, WithMaxConcurrency(o.maxConcurrency), WithLogger(o.logger)),
		cache:    cache,
		onChange: o.onChange,
		logger:   o.logger,
		urls:     []string{},
		view:     View{URLs: []string{}, Items: []Outcome{}, State: StateIdle},
	}
}

// SetContent extracts the URLs from content and loads them.
func (s *Session) SetContent(ctx context.Context, content extract.Value) View {
	return s.Load(ctx, extract.URLs(content))
}

// Load replaces the URL set and resolves it, serving cached successes
// without fetching.
func (s *Session) Load(ctx context.Context, urls []string) View {
	_, resolve := s.Begin(urls, true)
	return resolve(ctx)
}

// Refresh re-fetches every URL of the current set, bypassing the cache.
// It does nothing when there are no URLs.
func (s *Session) Refresh(ctx context.Context) View {
	_, resolve := s.BeginRefresh()
	return resolve(ctx)
}

// Begin replaces the URL set and enters the loading state without
// resolving anything. It returns the loading view and the function that
// resolves the batch, which may run on another goroutine.
func (s *Session) Begin(urls []string, useCache bool) (View, func(context.Context) View) {
	urls = append([]string{}, urls...)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.urls = urls

	if len(urls) == 0 {
		s.view = View{URLs: urls, Items: []Outcome{}, State: StateIdle, Generation: gen}
		v := s.view
		s.mu.Unlock()
		s.notify(v)
		return v, func(context.Context) View { return s.View() }
	}

	s.view.URLs = urls
	s.view.Loading = true
	s.view.OverallError = ""
	s.view.State = StateLoading
	s.view.Generation = gen
	v := s.view
	s.mu.Unlock()
	s.notify(v)

	return v, func(ctx context.Context) View {
		return s.resolve(ctx, gen, urls, useCache)
	}
}

// BeginRefresh is Begin for a forced refresh of the current URL set. With
// no URLs the session is left untouched.
func (s *Session) BeginRefresh() (View, func(context.Context) View) {
	s.mu.Lock()
	urls := s.urls
	s.mu.Unlock()

	if len(urls) == 0 {
		v := s.View()
		return v, func(context.Context) View { return s.View() }
	}
	return s.Begin(urls, false)
}

// ClearError dismisses the overall error.
func (s *Session) ClearError() View {
	s.mu.Lock()
	s.view.OverallError = ""
	v := s.view
	s.mu.Unlock()

	s.notify(v)
	return v
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// CachedCount returns how many successful previews the session holds.
func (s *Session) CachedCount() int {
	return s.cache.Len()
}

func (s *Session) resolve(ctx context.Context, gen uint64, urls []string, useCache bool) View {
	res := s.resolver.Resolve(ctx, urls, useCache)

	s.mu.Lock()
	if gen != s.gen {
		v := s.view
		s.mu.Unlock()
		s.logger.Debug("discarding stale preview batch", "generation", gen, "latest", v.Generation)
		return v
	}

	summary := Summarize(res.Outcomes)
	s.view = View{
		URLs:         urls,
		Items:        res.Items,
		Loading:      false,
		OverallError: res.OverallError,
		State:        stateOf(res),
		Summary:      summary,
		Subtitle:     summary.Subtitle(),
		Generation:   gen,
	}
	v := s.view
	s.mu.Unlock()

	s.notify(v)
	return v
}

func (s *Session) notify(v View) {
	if s.onChange != nil {
		s.onChange(v)
	}
}

func stateOf(res Result) State {
	all := Summarize(res.Outcomes)
	switch {
	case all.Failed == 0:
		return StateAllSuccess
	case res.OverallError != "":
		return StateAllFailedCommonCause
	default:
		return StateMixed
	}
}
