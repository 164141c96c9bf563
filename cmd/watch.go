package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/cache"
	"github.com/teemow/talendar/internal/instrumentation"
	"github.com/teemow/talendar/internal/logging"
	"github.com/teemow/talendar/internal/server"
	"github.com/teemow/talendar/internal/syncer"
)

const metricsStartupTimeout = 5 * time.Second

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		metricsAddr   string
		noMetrics     bool
		skipFirstPass bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync on a schedule and serve metrics and health probes",
		Long: `Run a sync pass now and then on the cron schedule configured as 'refresh'
(default: every 15 minutes). A pass that is still running when the next one
is due is skipped.

While watching, Prometheus metrics are served on /metrics together with
/healthz, /readyz and /status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			return runWatch(cmd.Context(), a, watchOptions{
				metrics:      !noMetrics,
				runFirstPass: !skipFirstPass,
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (default: 127.0.0.1:9090). Can also use TALENDAR_METRICS_ADDR env var.")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable instrumentation and the metrics endpoint")
	cmd.Flags().BoolVar(&skipFirstPass, "skip-first-pass", false, "Wait for the schedule instead of syncing at startup")
	return cmd
}

type watchOptions struct {
	metrics      bool
	runFirstPass bool
}

func runWatch(ctx context.Context, a *app, opts watchOptions) error {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = opts.metrics
	if err := instrConfig.Validate(); err != nil {
		return err
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	health := server.NewHealthChecker()
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    a.cfg.MetricsAddr,
		InstrumentationProvider: provider,
		Health:                  health,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}
	if err := startMetricsServer(metricsServer); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("error during metrics server shutdown", logging.Err(err))
		}
	}()

	c, err := a.loadCache(ctx)
	if err != nil {
		return err
	}
	engine, err := a.newEngine(ctx, provider.Metrics())
	if err != nil {
		return err
	}
	schedule, err := a.cfg.Schedule()
	if err != nil {
		return err
	}

	w := &watcher{engine: engine, cache: c, health: health, logger: a.logger}
	if opts.runFirstPass {
		w.pass(ctx)
	}

	scheduler := cron.New(
		cron.WithLocation(a.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{a.logger})),
	)
	scheduler.Schedule(schedule, cron.FuncJob(func() { w.pass(ctx) }))
	scheduler.Start()
	a.logger.Info("watching calendars",
		"schedule", a.cfg.Refresh,
		"next", schedule.Next(time.Now()).Format(time.RFC3339),
		"metrics_addr", metricsServer.Addr())

	<-ctx.Done()
	a.logger.Info("shutdown signal received, waiting for running sync")
	health.SetShuttingDown()

	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(server.DefaultShutdownTimeout):
		a.logger.Warn("sync pass did not finish before shutdown")
	}
	return nil
}

// startMetricsServer waits until the listener is bound or fails.
func startMetricsServer(s *server.MetricsServer) error {
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(ready); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ready:
		return nil
	case err := <-errCh:
		return fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return errors.New("metrics server startup timed out")
	}
}

// passRunner is the part of *syncer.Engine the watcher needs.
type passRunner interface {
	Sync(ctx context.Context, c *cache.Cache) (syncer.Result, error)
}

type watcher struct {
	engine passRunner
	cache  *cache.Cache
	health *server.HealthChecker
	logger *slog.Logger
}

// pass runs one sync and reports it. A failed pass keeps the watcher
// running; the next scheduled pass retries from the last saved tokens.
func (w *watcher) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := w.engine.Sync(ctx, w.cache)
	w.health.RecordPass(server.PassReport{
		Finished:  time.Now(),
		Duration:  res.Duration,
		Calendars: len(res.Calendars),
		Events:    w.cache.Len(),
		Err:       err,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("sync pass failed, retrying on schedule",
			logging.Err(err), "transient", syncer.IsTransient(err))
	}
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, logging.KeyError, err.Error())...)
}
