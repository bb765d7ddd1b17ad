package sse

const (
	EventConnected     = "connected"
	EventHeartbeat     = "heartbeat"
	EventPreviewState  = "preview.state"
	EventSessionClosed = "session.closed"
)

type Event struct {
	ID   string      `json:"id,omitempty"`
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
