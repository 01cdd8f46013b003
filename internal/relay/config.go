package relay

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultListenAddr   = "127.0.0.1:6000"
	DefaultPollInterval = 100 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
	Version             = "0.1.0"
)

var (
	ErrInvalidListenAddr   = errors.New("relay: invalid listen address")
	ErrInvalidPollInterval = errors.New("relay: invalid poll interval")
	ErrInvalidWriteTimeout = errors.New("relay: invalid write timeout")
	ErrInvalidMaxPeers     = errors.New("relay: invalid max peers")
)

// Config configures one relay server.
type Config struct {
	NodeID     string
	ListenAddr string
	// PollInterval bounds how long readers block per attempt and how often the
	// coordinator re-checks the router without a wake signal.
	PollInterval time.Duration
	// WriteTimeout bounds one fan-out write; zero disables the deadline.
	WriteTimeout time.Duration
	EchoSender   bool
	// MaxPeers rejects connections beyond the limit; zero is unlimited.
	MaxPeers    int
	AdminAddr   string
	CORSOrigins []string
}

func DefaultConfig() Config {
	return Config{
		NodeID:       "relay.local",
		ListenAddr:   DefaultListenAddr,
		PollInterval: DefaultPollInterval,
		WriteTimeout: DefaultWriteTimeout,
		EchoSender:   true,
	}
}

// WithDefaults fills zero-valued fields that have no meaningful zero.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.NodeID) == "" {
		c.NodeID = "relay.local"
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return ErrInvalidListenAddr
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.WriteTimeout < 0 {
		return ErrInvalidWriteTimeout
	}
	if c.MaxPeers < 0 {
		return ErrInvalidMaxPeers
	}
	return nil
}
