// Package network exposes the committed day feed to observers over
// WebSocket and serves snapshot reads for late joiners. Observers are
// strictly read-only: nothing they send can touch the simulation.
package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aicity-project/aicity/internal/engine"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/platform/metrics"
)

// feedDepth bounds the hub's inbound queue. The tick never blocks on
// observers; if the queue is full the message is dropped for everyone.
const feedDepth = 512

// StateSource provides the full-city snapshot sent to observers on
// connect. A snapshot is consistent with a single day boundary.
type StateSource interface {
	Snapshot() *engine.Snapshot
}

// envelope is the wire shape of every observer message.
type envelope struct {
	Type    string `json:"type"`
	Day     int    `json:"day"`
	Payload any    `json:"payload,omitempty"`
}

// Hub maintains the set of connected observers and fans committed day
// events out to them. It satisfies engine.Broadcaster.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	source     StateSource
	logger     *logger.Logger
	met        *metrics.Collector
}

// NewHub initializes an observer hub. The source may be nil, in which
// case new observers get no state message on connect.
func NewHub(log *logger.Logger, source StateSource) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, feedDepth),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		source:     source,
		logger:     log,
		met:        metrics.Get(),
	}
}

// SetSource attaches the snapshot source. Call before Run: the hub and
// the city construct each other's dependencies in opposite order.
func (h *Hub) SetSource(source StateSource) {
	h.source = source
}

// Run starts the hub's main loop. On context cancellation it closes
// every observer connection and returns.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
				delete(h.clients, client)
				h.met.RecordObserver(-1)
			}
			h.mu.Unlock()
			close(h.done)
			h.logger.Info("Observer hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.met.RecordObserver(1)
			h.logger.Info("Observer connected")
			h.sendState(client)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.met.RecordObserver(-1)
				h.logger.Info("Observer disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow observer: drop from the live feed. It can
					// re-sync from the snapshot endpoint.
					close(client.send)
					delete(h.clients, client)
					h.met.RecordObserver(-1)
					h.met.RecordObserverDrop()
					h.logger.Warn("Observer dropped: send buffer full")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues one committed day event for every observer. It never
// blocks: when the hub queue is full the message is dropped.
func (h *Hub) Broadcast(kind string, day int, payload any) {
	msg, err := json.Marshal(envelope{Type: kind, Day: day, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to serialize observer message %q: %v", kind, err)
		return
	}
	select {
	case h.broadcast <- msg:
		h.met.RecordBroadcast()
	default:
		h.logger.Warn("Observer feed saturated, dropping %q message", kind)
	}
}

// sendState pushes the full city state to a freshly connected observer.
func (h *Hub) sendState(client *Client) {
	if h.source == nil {
		return
	}
	snap := h.source.Snapshot()
	msg, err := json.Marshal(envelope{Type: "state", Day: snap.Day, Payload: snap})
	if err != nil {
		h.logger.Error("Failed to serialize state snapshot: %v", err)
		return
	}
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("Observer send buffer full during state sync")
	}
}
