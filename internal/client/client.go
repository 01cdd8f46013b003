// Package client is the terminal front-end for the relay: it writes one frame
// per input line and prints every frame it receives.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/tcprelay/internal/logging"
	"github.com/danmuck/tcprelay/internal/protocol/frame"
	"github.com/fatih/color"
)

// DefaultAddr is the relay endpoint used when none is given.
const DefaultAddr = "127.0.0.1:6000"

// Client is one connected peer.
type Client struct {
	conn net.Conn

	closeOnce sync.Once
	recvDone  chan struct{}

	// NoColor disables colored output regardless of the terminal.
	NoColor bool
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", strings.TrimSpace(addr))
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{
		conn:     conn,
		recvDone: make(chan struct{}),
	}
}

// IsQuit reports whether line is a local quit command.
func IsQuit(line string) bool {
	switch strings.TrimSpace(line) {
	case ":quit", ":q":
		return true
	}
	return false
}

// Send encodes text as one frame and writes it.
func (c *Client) Send(text string) error {
	return frame.WriteFrame(c.conn, frame.Encode(text))
}

// Close closes the connection; safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the receive loop stops.
func (c *Client) Done() <-chan struct{} {
	return c.recvDone
}

// Run starts the receive loop writing to out, then sends each line read from
// in until a quit command, EOF, a write failure, or ctx is done.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer c.Close()
	go c.receive(out)

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	lines := bufio.NewScanner(in)
	for lines.Scan() {
		msg := strings.TrimSpace(lines.Text())
		if IsQuit(msg) {
			return nil
		}
		if err := c.Send(msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: write: %w", err)
		}
	}
	if err := lines.Err(); err != nil {
		return fmt.Errorf("client: read input: %w", err)
	}
	return nil
}

func (c *Client) receive(out io.Writer) {
	defer close(c.recvDone)
	received := color.New(color.FgCyan)
	notice := color.New(color.FgYellow)
	if c.NoColor {
		received.DisableColor()
		notice.DisableColor()
	}

	for {
		f, err := frame.ReadFrame(c.conn)
		if err != nil {
			notice.Fprintln(out, "connection to server closed")
			logging.Debugf("client.receive stopped err=%v", err)
			return
		}
		text, err := frame.Decode(f)
		if err != nil {
			logging.Warnf("client.receive decode failed err=%v", err)
			continue
		}
		received.Fprintf(out, "%s %s\n", time.Now().Format("15:04:05"), text)
	}
}
