package sse

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

type Client struct {
	ID    string
	Topic string
	Send  chan Event
	Done  chan struct{}

	doneOnce sync.Once
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.Done) })
}

// Hub fans events out to the clients subscribed to a topic. Topics are
// preview session ids.
type Hub struct {
	mu sync.RWMutex

	// topic -> clientID -> client
	topics map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[string]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[client.Topic] == nil {
		h.topics[client.Topic] = make(map[string]*Client)
	}
	h.topics[client.Topic][client.ID] = client
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.topics[client.Topic]; ok {
		if _, ok := clients[client.ID]; !ok {
			return
		}
		delete(clients, client.ID)
		if len(clients) == 0 {
			delete(h.topics, client.Topic)
		}
	}

	client.finish()
	close(client.Send)
}

// Broadcast delivers event to every client of topic. Clients whose buffer
// is full miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event.ID == "" {
		event.ID = ulid.Make().String()
	}

	for _, client := range h.topics[topic] {
		select {
		case client.Send <- event:
		default:
			// Client buffer full, skip
		}
	}
}

// CloseTopic sends a final event to the clients of topic and ends their
// streams.
func (h *Hub) CloseTopic(topic string, final Event) {
	h.Broadcast(topic, final)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.topics[topic] {
		client.finish()
	}
}

// ClientCount returns the number of clients subscribed to topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
