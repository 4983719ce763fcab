package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/config"
	"github.com/playperu/scoreboard/internal/docstore"
	"github.com/playperu/scoreboard/internal/handler/health"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/roster"
	"github.com/playperu/scoreboard/internal/server"
	"github.com/playperu/scoreboard/internal/shotclock"
	"github.com/playperu/scoreboard/internal/state"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	store, err := docstore.Open(ctx, cfg.DBPath, logger, cfg.FeedPollInterval)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Broadcast ---
	// The overlay keeps working from live queries when the transport is down.
	ch, chErr := notify.Open(ctx, cfg.BroadcastURL, cfg.BroadcastChannel, logger)
	if chErr != nil {
		logger.Warn("broadcast unavailable, continuing without notifications", "error", chErr)
		ch = nil
	} else {
		defer ch.Close()
		logger.Info("broadcast channel ready", "channel", cfg.BroadcastChannel)
	}

	control := notify.New(ch, logger)
	defer control.Close()
	overlay := notify.New(ch, logger)
	defer overlay.Close()

	// --- Services ---
	mgr := state.New(store, control, logger, cfg.StateID)
	if err := mgr.Init(ctx); err != nil {
		return fmt.Errorf("initializing match state: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		State:       mgr,
		Assets:      assets.New(store, control, logger, cfg.MaxUploadBytes),
		Roster:      roster.New(store, control, mgr, logger),
		Notifier:    overlay,
		Channel:     ch,
		Checks:      healthChecks(store, ch, chErr),
		CORSOrigins: cfg.CORSOrigins,
		SPADir:      cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	if cfg.ShotClockEnabled {
		g.Go(func() error {
			return shotclock.New(mgr, cfg.ShotClockTick, logger).Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// healthChecks always reports the store. The broadcast transport is reported
// when it can be probed, or as failing when it could not be opened.
func healthChecks(store *docstore.Store, ch notify.Channel, openErr error) map[string]health.Checker {
	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(store.Ping),
	}
	if c, ok := ch.(health.Checker); ok {
		checks["broadcast"] = c
	} else if openErr != nil {
		checks["broadcast"] = health.CheckerFunc(func(context.Context) error { return openErr })
	}
	return checks
}
