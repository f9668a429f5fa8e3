package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext returns a context that is canceled by the first SIGINT or
// SIGTERM, letting a running watch stop between scans. A second signal
// exits immediately.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2) //nolint:mnd // first and second signal
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("interrupted, stopping", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second interrupt, exiting now", slog.String("signal", sig.String()))
			os.Exit(130) //nolint:mnd // 128 + SIGINT
		case <-parent.Done():
		}
	}()

	return ctx
}
