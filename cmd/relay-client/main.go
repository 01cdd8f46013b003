package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/tcprelay/internal/client"
	"github.com/danmuck/tcprelay/internal/logging"
)

func main() {
	addr := flag.String("addr", client.DefaultAddr, "relay server address")
	noColor := flag.Bool("no-color", false, "disable colored output")
	attempts := flag.Int("connect-attempts", 1, "dial attempts before giving up")
	flag.Parse()

	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.DialRetry(ctx, *addr, *attempts, client.DefaultBackoff())
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay-client: %v\n", err)
		os.Exit(1)
	}
	c.NoColor = *noColor
	fmt.Fprintf(os.Stdout, "connected to %s (:quit or :q to exit)\n", *addr)

	if err := c.Run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "relay-client: %v\n", err)
		os.Exit(1)
	}
}
