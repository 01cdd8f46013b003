package relay

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/danmuck/tcprelay/internal/protocol/frame"
	"github.com/google/uuid"
)

// Peer is the registry's handle on one accepted connection. Only the
// coordinator writes through it; its reader goroutine only reads.
type Peer struct {
	ID        PeerID
	Addr      string
	Connected time.Time

	conn      net.Conn
	closeOnce sync.Once
}

// PeerInfo is the read-only view of a Peer exposed to the admin surface.
type PeerInfo struct {
	ID        string    `json:"id"`
	Addr      string    `json:"addr"`
	Connected time.Time `json:"connected"`
}

func NewPeer(conn net.Conn) *Peer {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Peer{
		ID:        PeerID(uuid.NewString()),
		Addr:      addr,
		Connected: time.Now(),
		conn:      conn,
	}
}

func (p *Peer) Info() PeerInfo {
	return PeerInfo{
		ID:        string(p.ID),
		Addr:      p.Addr,
		Connected: p.Connected,
	}
}

// Write sends one frame. A positive timeout sets a write deadline first.
func (p *Peer) Write(f frame.Frame, timeout time.Duration) error {
	if timeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return frame.WriteFrame(p.conn, f)
}

// Close is safe to call from the reader and the coordinator.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
	})
	return err
}

// isWouldBlock reports a read that ended on its poll deadline without error
// on the connection itself.
func isWouldBlock(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
