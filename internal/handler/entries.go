package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/enzyme/peek/internal/entry"
	"github.com/enzyme/peek/internal/extract"
)

// PutEntry stores the request body as the content of entry {id}.
func (h *Handler) PutEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if !json.Valid(data) {
		badRequest(w, ErrCodeInvalidJSON, "Content must be valid JSON")
		return
	}

	e := &entry.Entry{ID: id, Content: json.RawMessage(data)}
	if existing, err := h.entries.Get(r.Context(), id); err == nil {
		e.CreatedAt = existing.CreatedAt
	}
	if err := h.entries.Put(r.Context(), e); err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			badRequest(w, ErrCodeValidationError, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	ids, err := h.entries.List(r.Context(), limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	err := h.entries.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, entry.ErrNotFound) {
		notFound(w, "Entry not found")
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EntryURLs returns the URLs found in the stored content, in first-seen order.
func (h *Handler) EntryURLs(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEntry(w, r)
	if !ok {
		return
	}

	v, err := e.Value()
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"urls": extract.URLs(v)})
}

func (h *Handler) loadEntry(w http.ResponseWriter, r *http.Request) (*entry.Entry, bool) {
	e, err := h.entries.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, entry.ErrNotFound) {
		notFound(w, "Entry not found")
		return nil, false
	}
	if err != nil {
		internalError(w, r, err)
		return nil, false
	}
	return e, true
}
