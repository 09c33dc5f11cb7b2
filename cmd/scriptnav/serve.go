package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/scriptnav/internal/config"
	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/fuzzy"
	"github.com/dshills/scriptnav/internal/logging"
	"github.com/dshills/scriptnav/internal/metrics"
	"github.com/dshills/scriptnav/internal/session"
	"github.com/dshills/scriptnav/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		metricsAddr string
		watch       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the command protocol on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch.Enabled = watch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload open files when they change on disk")
	return cmd
}

func serve(cmd *cobra.Command, cfg *config.Config) error {
	logger, closer, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	m := metrics.New(prometheus.NewRegistry())
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithMaxResults(cfg.Search.MaxResults),
		session.WithMatcher(fuzzy.NewMatcher(fuzzy.Options{
			MinScore:  cfg.Search.MinScore,
			PollEvery: cfg.Search.PollEvery,
		}, nil)),
		session.WithCacheOptions(
			versioncache.WithChangeNumberThreshold(cfg.Buffer.ChangeNumberThreshold),
			versioncache.WithChangeLengthThreshold(cfg.Buffer.ChangeLengthThreshold),
			versioncache.WithMaxVersions(cfg.Buffer.MaxVersions),
		),
	}

	if cfg.Watch.Enabled {
		files, closeWatcher, err := newFileWatcher(cfg.Watch, logger)
		if err != nil {
			return err
		}
		defer closeWatcher()
		opts = append(opts, session.WithWatcher(files))
	}

	s := session.New(opts...)
	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer stop()
		return s.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	return g.Wait()
}

// newFileWatcher builds the fsnotify, debounce and tracked-files chain.
func newFileWatcher(cfg config.WatchConfig, logger *slog.Logger) (*watcher.Files, func(), error) {
	ignore := watcher.WithIgnorePatterns(cfg.Ignore)
	src, err := watcher.NewFSNotify(logger, ignore)
	if err != nil {
		return nil, nil, fmt.Errorf("starting file watcher: %w", err)
	}
	debounced := watcher.NewDebounced(src, time.Duration(cfg.DebounceMS)*time.Millisecond)
	files, err := watcher.NewFiles(debounced, logger, ignore)
	if err != nil {
		debounced.Close()
		return nil, nil, err
	}
	return files, func() { _ = debounced.Close() }, nil
}
