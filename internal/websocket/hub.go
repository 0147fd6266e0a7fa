package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
)

// ErrHubStopped is returned when registering with a hub whose loop has exited
var ErrHubStopped = errors.New("websocket hub stopped")

const broadcastBuffer = 64

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}

	mu    sync.RWMutex
	count int

	logger  *slog.Logger
	metrics *infrastructure.AppMetrics
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.AppMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Run is the hub loop. It returns when ctx is done, after closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(ctx, client)
			}
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			h.metrics.TrackWebSocket(ctx, 1)

			h.logger.InfoContext(client.context(), "client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(ctx, client)
				h.logger.InfoContext(client.context(), "client unregistered",
					slog.Int("total_clients", len(h.clients)),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			failed := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					failed++
					h.drop(ctx, client)
					h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.logger.Debug("broadcast delivered",
				slog.Int("client_count", len(h.clients)),
				slog.Int("failed", failed),
				slog.Int("message_size", len(message)))
		}
	}
}

// drop removes client and closes its send channel. Run goroutine only.
func (h *Hub) drop(ctx context.Context, client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount(len(h.clients))
	h.metrics.TrackWebSocket(ctx, -1)
}

func (h *Hub) greet(client *Client) {
	msg, err := json.Marshal(Event{
		Type:      TypeConnection,
		TraceID:   client.traceID,
		Timestamp: time.Now().UTC(),
		Data: map[string]string{
			"status":    "connected",
			"client_id": client.id,
		},
	})
	if err != nil {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

// Register adds a client. It fails once the hub has stopped.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Unregister removes a client; a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// Publish implements Publisher. Events are dropped, with a warning,
// when the broadcast queue is full or the hub has stopped.
func (h *Hub) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.TraceID == "" {
		event.TraceID = infrastructure.GetTraceID(ctx)
	}

	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.stopped:
		return
	default:
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.WarnContext(ctx, "broadcast queue full, event dropped",
			slog.String("type", event.Type),
			slog.String("analysis_id", event.AnalysisID))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Done is closed when Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.stopped
}
