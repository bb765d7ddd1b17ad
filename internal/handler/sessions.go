package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/enzyme/peek/internal/entry"
	"github.com/enzyme/peek/internal/extract"
	"github.com/enzyme/peek/internal/linkpreview"
	"github.com/enzyme/peek/internal/session"
)

// SessionResponse is the body returned by every session endpoint.
// Cards are the view items rendered for the ?width= container.
type SessionResponse struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Cached    int                `json:"cached"`
	View      linkpreview.View   `json:"view"`
	Cards     []linkpreview.Card `json:"cards"`
}

// CreateSessionRequest names the content to preview: a stored entry or
// inline content.
type CreateSessionRequest struct {
	EntryID string          `json:"entry_id,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// CreateSession opens a session and starts loading the URLs of its content.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := containerWidth(w, r); !ok {
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	var req CreateSessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		badRequest(w, ErrCodeInvalidJSON, "Invalid request body")
		return
	}

	var content extract.Value
	switch {
	case req.EntryID != "" && len(req.Content) > 0:
		badRequest(w, ErrCodeValidationError, "Provide either entry_id or content, not both")
		return
	case req.EntryID != "":
		e, err := h.entries.Get(r.Context(), req.EntryID)
		if errors.Is(err, entry.ErrNotFound) {
			notFound(w, "Entry not found")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		if content, err = e.Value(); err != nil {
			internalError(w, r, err)
			return
		}
	case len(req.Content) > 0:
		if content, err = extract.Parse(req.Content); err != nil {
			badRequest(w, ErrCodeInvalidJSON, "Content must be valid JSON")
			return
		}
	default:
		badRequest(w, ErrCodeValidationError, "entry_id or content is required")
		return
	}

	s := h.sessions.Create()
	v, resolve := s.Begin(extract.URLs(content), true)
	h.respond(w, r, s, v, resolve, http.StatusCreated)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	width, ok := containerWidth(w, r)
	if !ok {
		return
	}
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, s.View(), width))
}

// PutContent replaces the session's content and loads its URLs through
// the session cache.
func (h *Handler) PutContent(w http.ResponseWriter, r *http.Request) {
	if _, ok := containerWidth(w, r); !ok {
		return
	}
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	data, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	content, err := extract.Parse(data)
	if err != nil {
		badRequest(w, ErrCodeInvalidJSON, "Content must be valid JSON")
		return
	}

	v, resolve := s.Begin(extract.URLs(content), true)
	h.respond(w, r, s, v, resolve, http.StatusOK)
}

// Refresh re-fetches every URL of the session, bypassing its cache.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	width, ok := containerWidth(w, r)
	if !ok {
		return
	}
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if s.View().Empty() {
		writeJSON(w, http.StatusOK, sessionResponse(s, s.View(), width))
		return
	}

	v, resolve := s.BeginRefresh()
	h.respond(w, r, s, v, resolve, http.StatusOK)
}

func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	width, ok := containerWidth(w, r)
	if !ok {
		return
	}
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, s.ClearError(), width))
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "sid")); err != nil {
		notFound(w, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond either resolves the batch inline (?wait=true) and answers with
// the settled view, or dispatches it and answers 202 with the loading view.
// An empty batch has nothing to resolve and is answered with settled.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, s *session.Session, v linkpreview.View, resolve func(context.Context) linkpreview.View, settled int) {
	width, _ := containerWidth(nil, r)
	switch {
	case !v.Loading:
		writeJSON(w, settled, sessionResponse(s, v, width))
	case r.URL.Query().Get("wait") == "true":
		writeJSON(w, settled, sessionResponse(s, resolve(r.Context()), width))
	default:
		h.sessions.Dispatch(func(ctx context.Context) { resolve(ctx) })
		writeJSON(w, http.StatusAccepted, sessionResponse(s, v, width))
	}
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		notFound(w, "Session not found")
		return nil, false
	}
	return s, true
}

func sessionResponse(s *session.Session, v linkpreview.View, width int) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Cached:    s.CachedCount(),
		View:      v,
		Cards:     linkpreview.Cards(v.Items, width),
	}
}

// containerWidth reads the optional ?width= query parameter. A missing
// width is 0, which renders cards for the grid layout. When w is non-nil an
// invalid width is answered with 400.
func containerWidth(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("width")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 10000 {
		if w != nil {
			badRequest(w, ErrCodeValidationError, "width must be between 1 and 10000")
		}
		return 0, false
	}
	return n, true
}
