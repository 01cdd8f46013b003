package relay

import (
	"time"

	"github.com/danmuck/tcprelay/internal/protocol/frame"
)

// Registry is the ordered set of writable peers. It is owned by a single
// goroutine and carries no lock.
type Registry struct {
	peers []*Peer
}

// BroadcastOptions shapes one fan-out pass.
type BroadcastOptions struct {
	WriteTimeout time.Duration
	EchoSender   bool
}

// FanoutResult reports the outcome of one Broadcast.
type FanoutResult struct {
	Delivered int
	Skipped   int
	Dropped   []*Peer
}

func NewRegistry() *Registry {
	return &Registry{peers: make([]*Peer, 0)}
}

func (r *Registry) Add(p *Peer) {
	r.peers = append(r.peers, p)
}

// Remove deletes the peer with id, keeping the order of the rest.
func (r *Registry) Remove(id PeerID) (*Peer, bool) {
	for i, p := range r.peers {
		if p.ID != id {
			continue
		}
		r.peers = append(r.peers[:i], r.peers[i+1:]...)
		return p, true
	}
	return nil, false
}

func (r *Registry) Len() int {
	return len(r.peers)
}

func (r *Registry) Get(id PeerID) (*Peer, bool) {
	for _, p := range r.peers {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) Snapshot() []PeerInfo {
	out := make([]PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p.Info())
	}
	return out
}

// Broadcast encodes msg once and writes it to every peer in registry order.
// Peers whose write fails are closed and removed; the rest are kept.
func (r *Registry) Broadcast(msg Message, opts BroadcastOptions) FanoutResult {
	f := frame.Encode(msg.Text)
	res := FanoutResult{}
	kept := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if !opts.EchoSender && p.ID == msg.Sender {
			kept = append(kept, p)
			res.Skipped++
			continue
		}
		if err := p.Write(f, opts.WriteTimeout); err != nil {
			_ = p.Close()
			res.Dropped = append(res.Dropped, p)
			continue
		}
		kept = append(kept, p)
		res.Delivered++
	}
	r.peers = kept
	return res
}

// CloseAll closes every peer and empties the registry.
func (r *Registry) CloseAll() []*Peer {
	closed := r.peers
	for _, p := range closed {
		_ = p.Close()
	}
	r.peers = make([]*Peer, 0)
	return closed
}
