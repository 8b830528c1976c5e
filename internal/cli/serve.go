// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/meetscribe/config"
	internal_detector "github.com/rapidaai/meetscribe/internal/detector"
	internal_session "github.com/rapidaai/meetscribe/internal/session"
	internal_shell "github.com/rapidaai/meetscribe/internal/shell"
	internal_store "github.com/rapidaai/meetscribe/internal/store"
	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// NewServeCmd runs the daemon: shell API, detection monitor and the
// recording core, until interrupted.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the meetscribe daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	vConfig, err := config.InitConfig()
	if err != nil {
		return err
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		return err
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := internal_store.NewSqliteStore(logger, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()

	backends, err := resolveBackends(ctx, logger, cfg, store)
	if err != nil {
		return err
	}

	controller := internal_session.NewController(logger, store, bus, backends.factory, backends.orchestrator)
	controller.SubscribeDetection()

	reconfigure := func(ctx context.Context) error {
		refreshed, err := resolveBackends(ctx, logger, cfg, store)
		if err != nil {
			return err
		}
		controller.Configure(refreshed.factory, refreshed.orchestrator)
		logger.Info("backends reconfigured from settings")
		return nil
	}

	var monitor *internal_detector.Monitor
	if cfg.DetectionEnabled {
		monitor = internal_detector.NewMonitor(
			logger,
			bus,
			internal_detector.NewDarwinProbe(logger),
			internal_detector.DefaultRegistry(),
			time.Duration(cfg.DetectionIntervalMs)*time.Millisecond,
		)
		monitor.Start()
	}

	server := internal_shell.NewServer(logger, cfg, store, controller, bus, reconfigure)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gCtx)
	})

	err = g.Wait()

	// Shutdown order matters: stop detection first so it cannot trigger
	// new transitions, then end any active recording.
	if monitor != nil {
		monitor.Stop()
	}
	if stopErr := controller.Stop(context.Background()); stopErr != nil {
		logger.Errorf("failed to stop active recording on shutdown: %v", stopErr)
	}

	return err
}
