package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lmsworks/member-service/internal/bootstrap"
	"github.com/lmsworks/member-service/internal/logger"
)

const drainTimeout = 15 * time.Second

// runner is the worker lifecycle. Start may block or spawn goroutines.
type runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type builder func() (runner, func(), error)

// Run starts the worker and blocks until a signal or a start failure. On a
// signal the run context is cancelled before Stop, so no new delivery is
// taken while the one in hand drains. It returns the process exit code.
func Run(build builder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	w, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	runCtx, stopConsuming := context.WithCancel(context.Background())
	defer stopConsuming()

	started := make(chan error, 1)
	go func() {
		lg.Info().Msg("mail-worker starting")
		started <- w.Start(runCtx)
	}()

	if err := waitForSignal(sigCh, started, lg); err != nil {
		lg.Error().Err(err).Msg("worker crashed")
		return 1
	}

	stopConsuming()
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := w.Stop(drainCtx); err != nil {
		lg.Error().Err(err).Dur("timeout", drainTimeout).Msg("drain did not finish")
		return 1
	}

	lg.Info().Msg("mail-worker drained")
	return 0
}

// waitForSignal returns nil once a signal arrives. A Start that returns
// cleanly leaves its goroutines running, so waiting continues.
func waitForSignal(sigCh <-chan os.Signal, started <-chan error, lg zerolog.Logger) error {
	for {
		select {
		case sig := <-sigCh:
			lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
			return nil
		case err := <-started:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			started = nil
		}
	}
}

func buildFromBootstrap() (runner, func(), error) {
	w, cleanup, err := bootstrap.NewMailWorker()
	if err != nil {
		return nil, nil, err
	}
	return w, cleanup, nil
}

func main() {
	logger.Init("mail-worker")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(buildFromBootstrap, sigCh, logger.Logger))
}
