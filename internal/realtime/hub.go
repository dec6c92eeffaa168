package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/community-portal/internal/logger"
)

// DefaultBuffer is the per-subscriber queue length used when none is configured
const DefaultBuffer = 64

// Publisher accepts committed changes
type Publisher interface {
	Publish(c Change)
}

// Hub delivers published changes to every matching subscription.
// Publish never blocks: a subscriber whose buffer is full loses the change.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
	log    *log.Logger
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    logger.Realtime(),
	}
}

// Subscription receives the changes matching its filter until closed
type Subscription struct {
	hub     *Hub
	filter  Filter
	ch      chan Change
	stop    func() bool
	dropped atomic.Int64
}

// Subscribe registers a subscription that is closed when ctx ends or Close is called
func (h *Hub) Subscribe(ctx context.Context, filter Filter) *Subscription {
	s := &Subscription{
		hub:    h,
		filter: filter,
		ch:     make(chan Change, h.buffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		s.stop = func() bool { return false }
		return s
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	s.stop = context.AfterFunc(ctx, func() { h.remove(s) })

	h.log.Debug("Subscription opened", "table", filter.Table, "column", filter.Column, "value", filter.Value)
	return s
}

// Publish delivers c to every matching subscription
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.filter.Matches(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			dropped := s.dropped.Add(1)
			h.log.Warn("Subscriber buffer full, change dropped",
				"table", c.Table,
				"action", c.Action,
				"dropped_total", dropped,
			)
		}
	}
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscription and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
	h.log.Debug("Subscription closed", "table", s.filter.Table, "dropped", s.dropped.Load())
}

// Changes returns the channel of delivered changes. It is closed with the subscription.
func (s *Subscription) Changes() <-chan Change {
	return s.ch
}

// Dropped returns how many changes were lost because the buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.stop()
	s.hub.remove(s)
}
