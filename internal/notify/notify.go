// Package notify delivers per-table change signals. A signal carries no
// payload: subscribers only learn that something in the table changed and
// are expected to reload.
package notify

import (
	"context"
	"sync"
)

// Broker publishes and subscribes to table change events.
type Broker interface {
	// Publish signals every subscriber of table.
	Publish(ctx context.Context, table string) error
	// Subscribe opens a live-change channel for table. The subscription is
	// closed when ctx is cancelled or Close is called.
	Subscribe(ctx context.Context, table string) (Subscription, error)
	// Close releases the broker's resources.
	Close() error
}

// Subscription is one live-change channel.
type Subscription interface {
	// C receives a value after one or more changes. Bursts are coalesced.
	// It is closed when the subscription ends.
	C() <-chan struct{}
	// Close ends the subscription. It is safe to call more than once.
	Close() error
}

// ChannelName returns the notification channel used for table. It matches
// the name the Postgres trigger notifies on.
func ChannelName(table string) string {
	return table + "_changes"
}

// signal is the coalescing channel shared by all Subscription implementations.
type signal struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1)}
}

func (s *signal) C() <-chan struct{} {
	return s.ch
}

// notify performs a non-blocking send; a pending signal already covers this one.
func (s *signal) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// close reports whether this call closed the channel.
func (s *signal) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	return true
}
