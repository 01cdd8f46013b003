package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/tcprelay/internal/logging"
	"github.com/danmuck/tcprelay/internal/relay"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to a relayd TOML config file")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := relay.DefaultConfig()
	if strings.TrimSpace(*configPath) != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "relayd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "relayd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg relay.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := relay.NewServer(cfg)
	if err := server.Listen(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx)
	})
	if addr := strings.TrimSpace(cfg.AdminAddr); addr != "" {
		admin := relay.NewAdmin(server, addr, cfg.CORSOrigins)
		g.Go(func() error {
			return admin.Serve(ctx)
		})
	}
	return g.Wait()
}
