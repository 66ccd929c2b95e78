package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// clientBuffer is how many events a slow client may lag before events are
// dropped for it.
const clientBuffer = 16

// Hub fans dashboard events out to Server-Sent Events clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Client is a single SSE connection. Only the goroutine running Serve
// writes to the connection.
type Client struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	events  chan []byte
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client without blocking.
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("dashboard event not encodable", "type", event.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.events <- data:
		default:
			slog.Debug("dropping event for slow SSE client", "type", event.Type)
		}
	}
}

// NewClient prepares w for an event stream.
func NewClient(w http.ResponseWriter, allowOrigin string) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if allowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	}

	return &Client{
		writer:  w,
		flusher: flusher,
		events:  make(chan []byte, clientBuffer),
	}, nil
}

// Send writes one event immediately.
func (c *Client) Send(data []byte) {
	fmt.Fprintf(c.writer, "data: %s\n\n", data)
	c.flusher.Flush()
}

// Serve writes queued events and keepalive pings until done is closed.
func (c *Client) Serve(done <-chan struct{}, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case data := <-c.events:
			c.Send(data)
		case <-ticker.C:
			fmt.Fprint(c.writer, ": ping\n\n")
			c.flusher.Flush()
		}
	}
}
