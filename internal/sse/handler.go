package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

const (
	HeartbeatInterval = 30 * time.Second
	ClientBufferSize  = 256
)

// Source provides the current state of a topic for newly connected clients.
type Source interface {
	Snapshot(topic string) (any, bool)
}

type Handler struct {
	hub       *Hub
	source    Source
	heartbeat time.Duration
}

func NewHandler(hub *Hub, source Source, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = HeartbeatInterval
	}
	return &Handler{
		hub:       hub,
		source:    source,
		heartbeat: heartbeat,
	}
}

// Events streams the state changes of one preview session.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sid")

	if _, ok := h.source.Snapshot(sessionID); !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client := &Client{
		ID:    ulid.Make().String(),
		Topic: sessionID,
		Send:  make(chan Event, ClientBufferSize),
		Done:  make(chan struct{}),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	h.writeEvent(w, flusher, Event{
		ID:   ulid.Make().String(),
		Type: EventConnected,
		Data: map[string]string{
			"client_id":  client.ID,
			"session_id": sessionID,
		},
	})

	// The registration above is asynchronous, so the current state is sent
	// explicitly instead of relying on the next broadcast.
	if view, ok := h.source.Snapshot(sessionID); ok {
		h.writeEvent(w, flusher, Event{
			ID:   ulid.Make().String(),
			Type: EventPreviewState,
			Data: view,
		})
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			h.drain(w, flusher, client)
			return
		case event, ok := <-client.Send:
			if !ok {
				return
			}
			h.writeEvent(w, flusher, event)
		case <-heartbeat.C:
			h.writeEvent(w, flusher, Event{
				ID:   ulid.Make().String(),
				Type: EventHeartbeat,
				Data: map[string]int64{
					"timestamp": time.Now().Unix(),
				},
			})
		}
	}
}

// drain writes the events still buffered for client.
func (h *Handler) drain(w http.ResponseWriter, flusher http.Flusher, client *Client) {
	for {
		select {
		case event, ok := <-client.Send:
			if !ok {
				return
			}
			h.writeEvent(w, flusher, event)
		default:
			return
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}

	// Marshal the full event (including type) so the client can dispatch by type
	data, err := json.Marshal(event)
	if err == nil {
		fmt.Fprintf(w, "data: %s\n", data)
	}

	fmt.Fprintf(w, "\n")
	flusher.Flush()
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
