package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/enzyme/peek/internal/entry"
	"github.com/enzyme/peek/internal/testutil"
)

func TestHealth(t *testing.T) {
	env := testHandler(t)

	rec := httptest.NewRecorder()
	env.h.Health(rec, newRequest(http.MethodGet, "/health", "", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status = %q", got)
	}
}

func TestPutEntry(t *testing.T) {
	env := testHandler(t)

	rec := httptest.NewRecorder()
	env.h.PutEntry(rec, newRequest(http.MethodPut, "/api/entries/note-1",
		`{"text":"see https://example.com"}`, map[string]string{"id": "note-1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	e := decode[entry.Entry](t, rec)
	if e.ID != "note-1" {
		t.Errorf("id = %q", e.ID)
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestPutEntry_KeepsCreatedAt(t *testing.T) {
	env := testHandler(t)
	testutil.CreateTestEntry(t, env.db, "note-1", map[string]string{"text": "old"})

	before := httptest.NewRecorder()
	env.h.GetEntry(before, newRequest(http.MethodGet, "/api/entries/note-1", "", map[string]string{"id": "note-1"}))
	original := decode[entry.Entry](t, before)

	rec := httptest.NewRecorder()
	env.h.PutEntry(rec, newRequest(http.MethodPut, "/api/entries/note-1", `{"text":"new"}`, map[string]string{"id": "note-1"}))
	updated := decode[entry.Entry](t, rec)

	if !updated.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("created_at = %v, want %v", updated.CreatedAt, original.CreatedAt)
	}
}

func TestPutEntry_InvalidJSON(t *testing.T) {
	env := testHandler(t)

	rec := httptest.NewRecorder()
	env.h.PutEntry(rec, newRequest(http.MethodPut, "/api/entries/x", `{not json`, map[string]string{"id": "x"}))

	assertError(t, rec, http.StatusBadRequest, ErrCodeInvalidJSON)
}

func TestPutEntry_TooLarge(t *testing.T) {
	env := testHandler(t)

	body := `"` + strings.Repeat("a", MaxBodySize) + `"`
	rec := httptest.NewRecorder()
	env.h.PutEntry(rec, newRequest(http.MethodPut, "/api/entries/x", body, map[string]string{"id": "x"}))

	assertError(t, rec, http.StatusRequestEntityTooLarge, ErrCodeBodyTooLarge)
}

func TestGetEntry_NotFound(t *testing.T) {
	env := testHandler(t)

	rec := httptest.NewRecorder()
	env.h.GetEntry(rec, newRequest(http.MethodGet, "/api/entries/missing", "", map[string]string{"id": "missing"}))

	assertError(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestListEntries(t *testing.T) {
	env := testHandler(t)
	testutil.CreateTestEntry(t, env.db, "a", "x")
	testutil.CreateTestEntry(t, env.db, "b", "y")

	rec := httptest.NewRecorder()
	env.h.ListEntries(rec, newRequest(http.MethodGet, "/api/entries", "", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	ids := decode[map[string][]string](t, rec)["ids"]
	if len(ids) != 2 {
		t.Errorf("ids = %v", ids)
	}
}

func TestListEntries_InvalidLimit(t *testing.T) {
	env := testHandler(t)

	for _, limit := range []string{"0", "-1", "abc", "1001"} {
		t.Run(limit, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.ListEntries(rec, newRequest(http.MethodGet, "/api/entries?limit="+limit, "", nil))
			assertError(t, rec, http.StatusBadRequest, ErrCodeValidationError)
		})
	}
}

func TestDeleteEntry(t *testing.T) {
	env := testHandler(t)
	testutil.CreateTestEntry(t, env.db, "a", "x")
	params := map[string]string{"id": "a"}

	rec := httptest.NewRecorder()
	env.h.DeleteEntry(rec, newRequest(http.MethodDelete, "/api/entries/a", "", params))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.h.DeleteEntry(rec, newRequest(http.MethodDelete, "/api/entries/a", "", params))
	assertError(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestEntryURLs(t *testing.T) {
	env := testHandler(t)
	testutil.CreateTestEntry(t, env.db, "note", map[string]any{
		"title": "links: https://a.com and https://b.com",
		"items": []any{"https://a.com again", map[string]any{"href": "http://c.org/x"}},
	})

	rec := httptest.NewRecorder()
	env.h.EntryURLs(rec, newRequest(http.MethodGet, "/api/entries/note/urls", "", map[string]string{"id": "note"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	urls := decode[map[string][]string](t, rec)["urls"]
	if len(urls) != 3 {
		t.Fatalf("urls = %v, want 3 distinct urls", urls)
	}
	for _, u := range []string{"https://a.com", "https://b.com", "http://c.org/x"} {
		found := false
		for _, got := range urls {
			if got == u {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s in %v", u, urls)
		}
	}
}
