package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/enzyme/peek/internal/entry"
	"github.com/enzyme/peek/internal/session"
)

// MaxBodySize caps request bodies carrying content.
const MaxBodySize = 1 << 20 // 1 MB

// Handler serves the entry and preview session endpoints.
type Handler struct {
	entries  *entry.Repository
	sessions *session.Manager
}

// Dependencies holds all dependencies for the Handler
type Dependencies struct {
	EntryRepo *entry.Repository
	Sessions  *session.Manager
}

// New creates a new Handler with all dependencies
func New(deps Dependencies) *Handler {
	return &Handler{
		entries:  deps.EntryRepo,
		sessions: deps.Sessions,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most MaxBodySize bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return data, nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBodyTooLarge, "Request body exceeds 1 MB")
		return
	}
	badRequest(w, ErrCodeInvalidJSON, "Invalid request body")
}
