package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
)

var ErrRouterClosed = errors.New("relay: router closed")

// PeerID identifies one accepted connection for its lifetime.
type PeerID string

// Message is one decoded inbound text with its origin.
type Message struct {
	Sender   PeerID
	Text     string
	Received time.Time
}

// Router is the multi-producer, single-consumer inbound queue. Publish never
// blocks; the consumer waits on Ready and drains.
type Router struct {
	mu     sync.Mutex
	q      *queue.Queue
	closed bool
	ready  chan struct{}
}

func NewRouter() *Router {
	return &Router{
		q:     queue.New(),
		ready: make(chan struct{}, 1),
	}
}

// Publish queues msg for the next fan-out.
func (r *Router) Publish(msg Message) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRouterClosed
	}
	r.q.Add(msg)
	r.mu.Unlock()

	select {
	case r.ready <- struct{}{}:
	default:
	}
	return nil
}

// Ready is signalled at least once after every Publish.
func (r *Router) Ready() <-chan struct{} {
	return r.ready
}

// DrainOne pops the oldest pending message without blocking.
func (r *Router) DrainOne() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.q.Length() == 0 {
		return Message{}, false
	}
	return r.q.Remove().(Message), true
}

// DrainAll pops every pending message in publish order.
func (r *Router) DrainAll() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]Message, 0, n)
	for r.q.Length() > 0 {
		out = append(out, r.q.Remove().(Message))
	}
	return out
}

func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.q.Length()
}

// Close rejects further publishes. Pending messages stay drainable.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
