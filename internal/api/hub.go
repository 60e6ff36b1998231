package api

import (
	"sync"

	"github.com/talgya/fishery/internal/engine"
)

// Hub fans stats out to stream subscribers. Slow subscribers miss updates
// rather than stall the simulation.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan engine.Stats
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan engine.Stats)}
}

// Subscribe registers a subscriber.
func (h *Hub) Subscribe() (int, <-chan engine.Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan engine.Stats, 16)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish sends st to every subscriber without blocking.
func (h *Hub) Publish(st engine.Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
