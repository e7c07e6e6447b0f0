package main

import (
	"sync"

	"github.com/dougsko/rigsetup/pkg/protocol"
)

const eventBuffer = 32

// eventHub fans events out to the connected panels. A panel that falls
// behind loses events rather than stalling the menu.
type eventHub struct {
	mu      sync.Mutex
	clients map[chan protocol.Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[chan protocol.Event]struct{})}
}

func (h *eventHub) subscribe() chan protocol.Event {
	ch := make(chan protocol.Event, eventBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan protocol.Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *eventHub) publish(ev protocol.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *eventHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
