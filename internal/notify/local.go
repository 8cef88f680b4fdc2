package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when using a broker after Close.
var ErrClosed = errors.New("notify: broker closed")

// Hub is an in-process Broker. It only sees changes published by this process.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*hubSub]struct{}
	closed bool
}

// NewHub creates an empty in-process broker.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*hubSub]struct{})}
}

// Publish signals every current subscriber of table.
func (h *Hub) Publish(_ context.Context, table string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for s := range h.subs[table] {
		s.notify()
	}
	return nil
}

// Subscribe registers a new subscriber for table.
func (h *Hub) Subscribe(ctx context.Context, table string) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	s := &hubSub{signal: newSignal(), hub: h, table: table}
	if h.subs[table] == nil {
		h.subs[table] = make(map[*hubSub]struct{})
	}
	h.subs[table][s] = struct{}{}

	s.stop = context.AfterFunc(ctx, func() { s.Close() })
	return s, nil
}

// Subscribers returns the number of open subscriptions for table.
func (h *Hub) Subscribers(table string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[table])
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	var all []*hubSub
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.closed = true
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	return nil
}

func (h *Hub) remove(s *hubSub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[s.table], s)
	if len(h.subs[s.table]) == 0 {
		delete(h.subs, s.table)
	}
}

type hubSub struct {
	*signal
	hub   *Hub
	table string
	stop  func() bool
}

func (s *hubSub) Close() error {
	if s.close() {
		s.hub.remove(s)
		if s.stop != nil {
			s.stop()
		}
	}
	return nil
}
