package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dakshkarigar/marketplace-api/internal/config"
	"github.com/dakshkarigar/marketplace-api/internal/events"
	"github.com/dakshkarigar/marketplace-api/internal/metrics"
	"github.com/dakshkarigar/marketplace-api/internal/scheduler"
	transporthttp "github.com/dakshkarigar/marketplace-api/internal/transport/http"
	"github.com/dakshkarigar/marketplace-api/migrations"
)

const startupTimeout = 5 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reassignment scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().String("port", "", "HTTP listen port")
	cmd.Flags().String("schedule", "", "reassignment cron schedule (seconds field optional)")
	_ = c.v.BindPFlag("http.port", cmd.Flags().Lookup("port"))
	_ = c.v.BindPFlag("reassignment.schedule", cmd.Flags().Lookup("schedule"))
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := openPool(startupCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("applied migrations", "names", applied)
	}

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	svcs := newServices(pool, cfg, logger, publisher, recorder)

	sched, err := scheduler.New(cfg.Reassignment.Schedule, svcs.reassignment.RunReassignmentCycle, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: transporthttp.NewRouter(transporthttp.RouterConfig{
			Orders:       svcs.orders,
			Partners:     svcs.partners,
			Reassignment: svcs.reassignment,
			DB:           pool,
			Gatherer:     reg,
			CORSOrigins:  cfg.CORS.Origins,
			Logger:       logger,
		}),
		ReadHeaderTimeout: startupTimeout,
	}

	logger.Info("api listening", "port", cfg.HTTP.Port, "schedule", cfg.Reassignment.Schedule, "events", cfg.Events.Driver)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()
	sched.Start()

	var runErr error
	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("reassignment cycle still running at shutdown", "error", err)
	}
	logger.Info("server stopped")
	return runErr
}
