package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/enzyme/peek/internal/entry"
	"github.com/enzyme/peek/internal/session"
	"github.com/enzyme/peek/internal/testutil"
)

type testEnv struct {
	h        *Handler
	db       *sql.DB
	fetcher  *testutil.FakeFetcher
	sessions *session.Manager
}

// testHandler creates a fully-wired Handler backed by an in-memory SQLite database.
func testHandler(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	fetcher := testutil.NewFakeFetcher()
	sessions := session.NewManager(fetcher, nil, session.Options{})
	t.Cleanup(func() {
		_ = sessions.Close(context.Background())
	})

	h := New(Dependencies{
		EntryRepo: entry.NewRepository(db),
		Sessions:  sessions,
	})

	return &testEnv{h: h, db: db, fetcher: fetcher, sessions: sessions}
}

// newRequest builds a request with chi URL params set, as the router would.
func newRequest(method, target, body string, params map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decode[ApiErrorResponse](t, rec)
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
}
