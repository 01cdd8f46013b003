package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/tcprelay/internal/relay"
	"github.com/danmuck/tcprelay/internal/testutil/testlog"
)

func TestClientsExchangeThroughRelay(t *testing.T) {
	testlog.Start(t)
	cfg := relay.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.PollInterval = 10 * time.Millisecond
	server := relay.NewServer(cfg)
	if err := server.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx) }()
	defer func() {
		cancel()
		<-serveErr
	}()

	addr := server.Addr().String()
	receiver, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial receiver: %v", err)
	}
	receiver.NoColor = true
	out := &syncBuffer{}
	inR, inW := pipeInput(t)
	go func() { _ = receiver.Run(ctx, inR, out) }()
	defer inW.Close()

	sender, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial sender: %v", err)
	}
	sender.NoColor = true

	deadline := time.Now().Add(2 * time.Second)
	for len(server.Peers()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(server.Peers()) != 2 {
		t.Fatalf("expected two peers, have %d", len(server.Peers()))
	}

	if err := sender.Run(ctx, strings.NewReader("ping\n:quit\n"), &syncBuffer{}); err != nil {
		t.Fatalf("sender run: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "ping") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("receiver never printed ping, output=%q", out.String())
}
