package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/talendar/internal/cache"
	"github.com/teemow/talendar/internal/calendar"
	"github.com/teemow/talendar/internal/config"
	"github.com/teemow/talendar/internal/google"
	"github.com/teemow/talendar/internal/instrumentation"
	"github.com/teemow/talendar/internal/logging"
	"github.com/teemow/talendar/internal/store"
	"github.com/teemow/talendar/internal/syncer"
)

// app is the resolved configuration shared by the subcommands.
type app struct {
	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	store  store.Store
}

// setup loads the configuration with the flags of cmd applied on top.
func (o *globalOptions) setup(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	cfg, err := config.Load(o.configPath, func(c *config.Config) {
		if flags.Changed("data-dir") {
			c.DataDir = o.dataDir
		}
		if flags.Changed("cache") {
			c.CachePath = o.cachePath
		}
		if flags.Changed("cache-backend") {
			c.CacheBackend = o.cacheBackend
		}
		if flags.Changed("time-zone") {
			c.TimeZone = o.timeZone
		}
		if flags.Changed("log-level") {
			c.LogLevel = o.logLevel
		}
		if flags.Changed("parallelism") {
			c.Parallelism = o.parallelism
		}
		if flags.Changed("request-timeout") {
			c.RequestTimeout = o.requestTimeout
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return newApp(cfg, cmd.ErrOrStderr())
}

// newApp resolves cfg and installs the logger writing to w as the default.
func newApp(cfg *config.Config, w io.Writer) (*app, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	st, err := cfg.Store()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	logger := logging.NewLogger(w, level)
	slog.SetDefault(logger)
	return &app{cfg: cfg, loc: loc, logger: logger, store: st}, nil
}

// loadCache reads the persisted cache. An unreadable cache is replaced by an
// empty one after a warning.
func (a *app) loadCache(ctx context.Context) (*cache.Cache, error) {
	res, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if res.Warning != nil {
		a.logger.Warn("discarding unreadable cache, next sync will be a full sync",
			logging.Path(a.store.Path()), logging.Err(res.Warning))
	}
	res.Cache.SetLocation(a.loc)
	return res.Cache, nil
}

// newEngine wires the authorized Google client into a sync engine.
func (a *app) newEngine(ctx context.Context, metrics *instrumentation.Metrics) (*syncer.Engine, error) {
	conf, err := google.LoadConfig(a.cfg.ClientSecretPath)
	if err != nil {
		return nil, err
	}
	httpClient, err := google.HTTPClient(ctx, conf, google.NewFileTokenStore(a.cfg.TokenPath), metrics)
	if err != nil {
		return nil, err
	}
	client, err := calendar.NewClient(ctx, httpClient, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	return syncer.NewEngine(client, a.store, syncer.Config{
		TimeZone:       a.cfg.TimeZone,
		RequestTimeout: a.cfg.RequestTimeout,
		Parallelism:    a.cfg.Parallelism,
	},
		syncer.WithLogger(logging.NewSlogAdapter(a.logger)),
		syncer.WithMetrics(metrics),
	), nil
}
