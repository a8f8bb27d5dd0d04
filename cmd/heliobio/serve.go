package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/sawpanic/heliobio/internal/interfaces/http"
	"github.com/sawpanic/heliobio/internal/interfaces/http/handlers"
	"github.com/sawpanic/heliobio/internal/interfaces/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the poller with the HTTP and websocket server",
		Long:  "Poll the metric sources on the configured interval and serve the REST API, /metrics and /ws until SIGINT or SIGTERM",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "HTTP port override")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("Shutdown cleanup failed")
		}
	}()

	hub := ws.NewHub(
		ws.WithClientGauge(a.metrics.SetWSClients),
		ws.WithLatest(a.poller.Latest),
	)
	a.poller.AddObserver(hub)

	srv, err := httpapi.NewServer(cfg.Server, httpapi.Deps{
		Deps: handlers.Deps{
			Poller:        a.poller,
			SourceHealth:  a.health,
			Archive:       a.archive.Repository(),
			ArchiveHealth: a.archive.Health(),
			Version:       version,
		},
		Metrics: a.metrics,
		Stream:  hub,
	})
	if err != nil {
		return err
	}

	go hub.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()
	go func() {
		if err := a.poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	log.Info().
		Str("addr", srv.GetAddress()).
		Str("version", version).
		Dur("interval", cfg.Poll.Interval).
		Msg("heliobio running")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error().Err(runErr).Msg("Service stopped unexpectedly")
		}
		stop()
	}

	a.poller.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	return runErr
}
