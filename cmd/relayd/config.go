package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tcprelay/internal/relay"
)

type fileConfig struct {
	NodeID         string   `toml:"node_id"`
	ListenAddr     string   `toml:"listen_addr"`
	PollInterval   string   `toml:"poll_interval"`
	PollIntervalMS int64    `toml:"poll_interval_ms"`
	WriteTimeout   string   `toml:"write_timeout"`
	EchoSender     bool     `toml:"echo_sender"`
	MaxPeers       int      `toml:"max_peers"`
	AdminAddr      string   `toml:"admin_addr"`
	CORSOrigins    []string `toml:"cors_origins"`
}

func loadConfig(path string) (relay.Config, error) {
	cfg := relay.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return relay.Config{}, fmt.Errorf("load relayd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return relay.Config{}, fmt.Errorf("load relayd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("node_id") {
		if id := strings.TrimSpace(raw.NodeID); id != "" {
			cfg.NodeID = id
		}
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return relay.Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}

	if meta.IsDefined("poll_interval_ms") {
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return relay.Config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if meta.IsDefined("echo_sender") {
		cfg.EchoSender = raw.EchoSender
	}

	if meta.IsDefined("max_peers") {
		cfg.MaxPeers = raw.MaxPeers
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}

	if err := cfg.Validate(); err != nil {
		return relay.Config{}, err
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
