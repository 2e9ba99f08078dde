package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"acadcal/internal/dataset"
	appLog "acadcal/internal/log"
	"acadcal/internal/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI, JSON API and ICS feed.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	appLog.Info("acadcal starting", "version", version)

	cfg, loc, err := loadConfig(c)
	if err != nil {
		return err
	}
	if l := c.String("listen"); l != "" {
		cfg.Listen = l
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	store := dataset.NewStore(newLoader(cfg, loc))
	if err := store.Reload(ctx); err != nil {
		return err
	}

	refreshDone := make(chan struct{})
	if cfg.RefreshCron != "" {
		r, err := dataset.NewRefresher(store, cfg.RefreshCron, loc)
		if err != nil {
			return err
		}
		go func() {
			defer close(refreshDone)
			r.Run(ctx)
		}()
	} else {
		close(refreshDone)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           web.NewServer(cfg, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		<-refreshDone
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	<-refreshDone

	appLog.Info("acadcal exiting")
	return nil
}
