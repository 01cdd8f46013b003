package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/tcprelay/internal/logging"
	"github.com/danmuck/tcprelay/internal/observability"
	"github.com/danmuck/tcprelay/internal/protocol/frame"
)

var (
	ErrNotListening     = errors.New("relay: server is not listening")
	ErrAlreadyListening = errors.New("relay: server already listening")
)

// Server accepts peers and relays every decoded message to the registry.
type Server struct {
	cfg    Config
	router *Router

	mu sync.Mutex
	ln net.Listener

	// owned by the coordinator goroutine
	registry *Registry

	accepted chan net.Conn
	closed   chan PeerID
	peers    atomic.Pointer[[]PeerInfo]
	serving  atomic.Bool
	started  time.Time
	wg       sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	observability.RegisterMetrics()
	s := &Server{
		cfg:      cfg.WithDefaults(),
		router:   NewRouter(),
		registry: NewRegistry(),
		accepted: make(chan net.Conn),
		closed:   make(chan PeerID),
		started:  time.Now(),
	}
	empty := []PeerInfo{}
	s.peers.Store(&empty)
	return s
}

func (s *Server) Config() Config {
	return s.cfg
}

// Listen binds the listening socket. Bind failures are fatal to startup.
func (s *Server) Listen() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return ErrAlreadyListening
	}
	ln, err := net.Listen("tcp", strings.TrimSpace(s.cfg.ListenAddr))
	if err != nil {
		return fmt.Errorf("relay: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	logging.Infof("relay.Server.Listen listening addr=%q node=%s", ln.Addr().String(), s.cfg.NodeID)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serving reports whether the coordinator loop is running.
func (s *Server) Serving() bool {
	return s.serving.Load()
}

func (s *Server) Uptime() time.Duration {
	return time.Since(s.started)
}

// Peers returns the registry as last published by the coordinator.
func (s *Server) Peers() []PeerInfo {
	p := s.peers.Load()
	out := make([]PeerInfo, len(*p))
	copy(out, *p)
	return out
}

// Run binds and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the coordinator loop. It is the only goroutine that touches the
// registry, so accept, fan-out and pruning never race each other.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.shutdown(ln)
	}()

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		s.acceptLoop(ctx, ln)
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.serving.Store(true)
	defer s.serving.Store(false)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-acceptDone:
			// listener closed underneath us
			return nil
		case conn := <-s.accepted:
			s.register(ctx, conn)
		case id := <-s.closed:
			s.prune(id, observability.ReasonReadClosed)
		case <-s.router.Ready():
			s.broadcastPending()
		case <-ticker.C:
			s.broadcastPending()
		}
	}
}

// acceptLoop hands accepted connections to the coordinator. Accept errors
// other than a closed listener are logged and retried with a growing delay;
// only ctx or net.ErrClosed end the loop.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			delay = nextAcceptDelay(delay)
			observability.RecordConnection(s.cfg.NodeID, observability.OutcomeAcceptError)
			logging.Warnf("relay.Server.acceptLoop accept failed retry_in=%s err=%v", delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}
		delay = 0
		select {
		case s.accepted <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

const maxAcceptDelay = time.Second

// nextAcceptDelay doubles from 5ms up to maxAcceptDelay, as net/http does.
func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if next := prev * 2; next < maxAcceptDelay {
		return next
	}
	return maxAcceptDelay
}

func (s *Server) register(ctx context.Context, conn net.Conn) {
	s.drainClosed()
	if s.cfg.MaxPeers > 0 && s.registry.Len() >= s.cfg.MaxPeers {
		logging.Warnf(
			"relay.Server.register rejected addr=%q peers=%d max_peers=%d",
			conn.RemoteAddr().String(),
			s.registry.Len(),
			s.cfg.MaxPeers,
		)
		_ = conn.Close()
		observability.RecordConnection(s.cfg.NodeID, observability.OutcomeRejected)
		return
	}

	p := NewPeer(conn)
	s.registry.Add(p)
	observability.RecordConnection(s.cfg.NodeID, observability.OutcomeAccepted)
	s.publishPeers()
	logging.Infof("relay.Server.register peer connected id=%s addr=%q peers=%d", p.ID, p.Addr, s.registry.Len())

	s.wg.Add(1)
	go s.readLoop(ctx, p)
}

// readLoop is the per-peer handler: Connected -> Reading -> Closed.
// Each read blocks for at most one poll interval; a deadline expiry is a
// would-block and the partial frame is kept for the next attempt.
func (s *Server) readLoop(ctx context.Context, p *Peer) {
	defer s.wg.Done()
	defer func() {
		_ = p.Close()
		select {
		case s.closed <- p.ID:
		case <-ctx.Done():
		}
	}()

	fr := frame.NewReader(p.conn)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.conn.SetReadDeadline(time.Now().Add(s.cfg.PollInterval)); err != nil {
			logging.Infof("relay.Server.readLoop closing id=%s addr=%q err=%v", p.ID, p.Addr, err)
			return
		}
		f, err := fr.Next()
		if err != nil {
			if isWouldBlock(err) {
				continue
			}
			logging.Infof("relay.Server.readLoop peer disconnected id=%s addr=%q err=%v", p.ID, p.Addr, err)
			return
		}

		text, err := frame.Decode(f)
		if err != nil {
			observability.RecordDecodeError(s.cfg.NodeID)
			logging.Warnf("relay.Server.readLoop decode failed id=%s addr=%q err=%v", p.ID, p.Addr, err)
			continue
		}

		msg := Message{Sender: p.ID, Text: text, Received: time.Now()}
		if err := s.router.Publish(msg); err != nil {
			// only reachable once the server is shutting down
			logging.Errf("relay.Server.readLoop publish failed id=%s err=%v", p.ID, err)
			return
		}
		observability.RecordPublished(s.cfg.NodeID)
		logging.Debugf("relay.Server.readLoop published id=%s bytes=%d", p.ID, len(text))
	}
}

// broadcastPending drains the router and fans each message out in order.
func (s *Server) broadcastPending() {
	msgs := s.router.DrainAll()
	if len(msgs) == 0 {
		return
	}
	opts := BroadcastOptions{
		WriteTimeout: s.cfg.WriteTimeout,
		EchoSender:   s.cfg.EchoSender,
	}
	changed := false
	for _, msg := range msgs {
		start := time.Now()
		res := s.registry.Broadcast(msg, opts)
		observability.RecordFanout(s.cfg.NodeID, res.Delivered, time.Since(start))
		for _, p := range res.Dropped {
			changed = true
			observability.RecordPeerDropped(s.cfg.NodeID, observability.ReasonWriteFailed)
			logging.Infof("relay.Server.broadcast dropped peer id=%s addr=%q", p.ID, p.Addr)
		}
	}
	if changed {
		s.publishPeers()
	}
}

// drainClosed prunes every close notice already waiting, so readers that
// have exited do not count against MaxPeers.
func (s *Server) drainClosed() {
	for {
		select {
		case id := <-s.closed:
			s.prune(id, observability.ReasonReadClosed)
		default:
			return
		}
	}
}

func (s *Server) prune(id PeerID, reason string) {
	p, ok := s.registry.Remove(id)
	if !ok {
		return
	}
	observability.RecordPeerDropped(s.cfg.NodeID, reason)
	s.publishPeers()
	logging.Infof("relay.Server.prune removed id=%s addr=%q reason=%s peers=%d", p.ID, p.Addr, reason, s.registry.Len())
}

func (s *Server) publishPeers() {
	snap := s.registry.Snapshot()
	s.peers.Store(&snap)
	observability.SetPeersConnected(s.cfg.NodeID, len(snap))
}

func (s *Server) shutdown(ln net.Listener) {
	_ = ln.Close()
	s.router.Close()
	for range s.registry.CloseAll() {
		observability.RecordPeerDropped(s.cfg.NodeID, observability.ReasonShutdown)
	}
	s.publishPeers()
	s.wg.Wait()
	s.mu.Lock()
	s.ln = nil
	s.mu.Unlock()
	logging.Infof("relay.Server.shutdown stopped node=%s", s.cfg.NodeID)
}
