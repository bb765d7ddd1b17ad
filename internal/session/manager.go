// Package session keeps the live preview sessions opened over the API.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/enzyme/peek/internal/linkpreview"
	"github.com/enzyme/peek/internal/sse"
)

var ErrNotFound = errors.New("session not found")

const DefaultIdleTimeout = 30 * time.Minute

// Session is a registered preview session.
type Session struct {
	ID        string
	CreatedAt time.Time
	*linkpreview.Session
}

// Options configures a Manager.
type Options struct {
	// IdleTimeout closes sessions that have not been accessed for this long.
	IdleTimeout    time.Duration
	MaxConcurrency int
	Logger         *slog.Logger
}

// Manager owns the live sessions. A session that is deleted or idles out
// drops its cache and ends its event streams.
type Manager struct {
	fetcher linkpreview.Fetcher
	hub     *sse.Hub
	opts    Options
	logger  *slog.Logger

	sessions *gocache.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ sse.Source = (*Manager)(nil)

// NewManager creates a Manager. hub may be nil when nobody streams events.
func NewManager(fetcher linkpreview.Fetcher, hub *sse.Hub, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		fetcher:  fetcher,
		hub:      hub,
		opts:     opts,
		logger:   logger,
		sessions: gocache.New(opts.IdleTimeout, opts.IdleTimeout/2),
		ctx:      ctx,
		cancel:   cancel,
	}
	m.sessions.OnEvicted(m.evicted)
	return m
}

// Create opens an idle session.
func (m *Manager) Create() *Session {
	id := ulid.Make().String()

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Session: linkpreview.NewSession(m.fetcher,
			linkpreview.WithOnChange(func(v linkpreview.View) { m.publish(id, v) }),
			linkpreview.WithSessionLogger(m.logger.With("session_id", id)),
			linkpreview.WithSessionConcurrency(m.opts.MaxConcurrency),
		),
	}
	m.sessions.Set(id, s, gocache.DefaultExpiration)

	m.logger.Debug("session opened", "session_id", id)
	return s
}

// Get returns the session and extends its idle timeout.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s := v.(*Session)
	m.sessions.Set(id, s, gocache.DefaultExpiration)
	return s, nil
}

// Delete closes the session.
func (m *Manager) Delete(id string) error {
	if _, ok := m.sessions.Get(id); !ok {
		return ErrNotFound
	}
	m.sessions.Delete(id)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

// Snapshot returns the current view of a session for new event streams.
func (m *Manager) Snapshot(id string) (any, bool) {
	s, err := m.Get(id)
	if err != nil {
		return nil, false
	}
	return s.View(), true
}

// Dispatch runs fn in the background. fn's context is cancelled by Close.
func (m *Manager) Dispatch(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(m.ctx)
	}()
}

// Wait blocks until every dispatched operation has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels in-flight loads and waits for them, or for ctx.
func (m *Manager) Close(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) publish(id string, v linkpreview.View) {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(id, sse.Event{Type: sse.EventPreviewState, Data: v})
}

func (m *Manager) evicted(id string, _ interface{}) {
	m.logger.Debug("session closed", "session_id", id)
	if m.hub != nil {
		m.hub.CloseTopic(id, sse.Event{
			Type: sse.EventSessionClosed,
			Data: map[string]string{"session_id": id},
		})
	}
}
