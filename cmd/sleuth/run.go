package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/snow-ghost/sleuth/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the orchestrator loop and serve metrics and question intake",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.withEngine(ctx, func(e *worker.Engine) error {
				return serve(ctx, e)
			})
		},
	}
}

func serve(ctx context.Context, e *worker.Engine) error {
	if n, err := e.Orchestrator.Recover(ctx); err != nil {
		return err
	} else if n > 0 {
		e.Logger.Info("released interrupted tasks", zap.Int("count", n))
	}

	mux := e.Recorder.Mux()
	worker.NewIngestor(e.Orchestrator).Register(mux)
	srv := &http.Server{
		Addr:              e.Config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.Logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		e.Logger.Info("orchestrator started")
		err := e.Orchestrator.Run(ctx)
		e.Logger.Info("orchestrator stopped")
		return err
	})
	return g.Wait()
}
