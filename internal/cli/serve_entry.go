package docqa

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwiater/docqa/internal/logging"
	"github.com/mwiater/docqa/internal/server"
)

const shutdownTimeout = 10 * time.Second

func runServe(parent context.Context, addr string, warmup bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := newAgent()
	if err != nil {
		return err
	}
	defer agent.Close()

	if warmup {
		if err := agent.Warmup(ctx); err != nil {
			logging.LogWarn("model warmup failed: %v", err)
		}
	}

	cfg := agent.Snapshot()
	if addr != "" {
		cfg.ListenAddr = addr
	}
	srv := server.New(cfg, agent)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.LogEvent("[SERVER] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
