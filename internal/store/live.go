package store

import (
	"context"
	"sync"
)

// hub fans committed snapshots out to live-query subscribers. Each subscriber
// buffers one snapshot; a slow reader only ever sees the latest state.
type hub[E any] struct {
	mu   sync.Mutex
	next int
	subs map[int]chan []E
}

func newHub[E any]() *hub[E] {
	return &hub[E]{subs: make(map[int]chan []E)}
}

func (h *hub[E]) empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) == 0
}

func (h *hub[E]) add(ctx context.Context, initial []E) <-chan []E {
	ch := make(chan []E, 1)
	ch <- initial

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub[E]) broadcast(snap []E) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- snap:
		default:
			// replace the stale snapshot the reader has not picked up yet
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
