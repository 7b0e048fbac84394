package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/attendee"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/config"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/session"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/store"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.UsingDefaultSessionSecret() {
		logger.Warn("SESSION_SECRET is unset, using an insecure development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the connection record store and the event journal.
	recordStore, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	eventJournal, err := journal.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening event journal: %w", err)
	}
	defer func() {
		if err := eventJournal.Close(); err != nil {
			logger.Warn("closing event journal", "error", err)
		}
	}()

	handler := web.NewHandler(web.Deps{
		Config:   cfg,
		Store:    recordStore,
		Sessions: session.NewManager(cfg.Session.Secret),
		Attendee: attendee.NewClient(cfg.Attendee.BaseURL, cfg.Attendee.APIKey),
		Journal:  eventJournal,
		Logger:   logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("zoomrelay listening", "addr", addr, "redirect_uri", cfg.Zoom.RedirectURI)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
