package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/flvexporter/internal/httpapi"
	"github.com/hamed0406/flvexporter/internal/logging"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the exporter: periodic checks plus the metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		logger.Info("config_loaded",
			zap.String("file", cfg.File),
			zap.Int("projects", len(cfg.Flv.URLs)),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, newApp(cfg, logger, 0, true))
	},
}

// serve runs the HTTP server and the scheduler until ctx is done, then shuts
// both down.
func serve(ctx context.Context, a *app) error {
	api := httpapi.NewServer(a.logger, a.cfg.Flv.URLs, a.targets, a.store, a.exporter.Registry())
	srv := &http.Server{
		Addr:              a.cfg.Server.Address,
		Handler:           api.Router(a.cfg.Server.APIRatePerMin, a.cfg.Server.APIBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("api_listen", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.scheduler.Start(gctx)
		<-gctx.Done()
		a.logger.Info("shutdown_started")

		var err error
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, srv.Shutdown(shutCtx))
		err = multierr.Append(err, a.scheduler.Stop())
		return err
	})

	err := g.Wait()
	if err != nil {
		a.logger.Error("shutdown_error", zap.Error(err))
		return err
	}
	a.logger.Info("shutdown_complete")
	return nil
}
