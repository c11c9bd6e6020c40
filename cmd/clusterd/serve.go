package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/codec"
	"github.com/hupe1980/clusterkit/internal/compress"
	"github.com/hupe1980/clusterkit/internal/server"
	"github.com/hupe1980/clusterkit/resource"
	"github.com/hupe1980/clusterkit/resultstore"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(g *globalFlags) *cobra.Command {
	var (
		addr        string
		seedPresets bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			if seedPresets {
				if err := seedStore(ctx, a.blobs, a.rc, "presets", "ckm", a.cfg.Server.PresetSeed); err != nil {
					return err
				}
			}
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&seedPresets, "seed-presets", false, "write the synthetic presets to the store before serving")
	return cmd
}

// app holds the components shared by the subcommands.
type app struct {
	cfg      config
	logger   *clusterkit.Logger
	rc       *resource.Controller
	blobs    blobstore.BlobStore
	codec    codec.Codec
	results  *resultstore.Store
	registry *prometheus.Registry
	metrics  *server.PrometheusCollector
	engine   *clusterkit.Engine
}

func newApp(ctx context.Context, cfg config) (*app, error) {
	logger, err := cfg.logger()
	if err != nil {
		return nil, err
	}
	rc := cfg.Resources.controller()

	blobs, err := openStore(ctx, cfg, rc)
	if err != nil {
		return nil, err
	}

	c, err := codec.Lookup(cfg.ResultCodec)
	if err != nil {
		return nil, err
	}
	compression, err := compress.ParseType(cfg.ResultCompression)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewPrometheusCollector(reg)

	engOpts := []clusterkit.Option{
		clusterkit.WithLogger(logger),
		clusterkit.WithMetricsCollector(metrics),
		clusterkit.WithResourceController(rc),
		clusterkit.WithDefaultMaxIters(cfg.Engine.DefaultMaxIters),
	}
	if cfg.Engine.Seed != nil {
		engOpts = append(engOpts, clusterkit.WithSeed(*cfg.Engine.Seed))
	}
	if cfg.Engine.EMStop {
		engOpts = append(engOpts, clusterkit.WithEMConvergence(true, 0))
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		rc:       rc,
		blobs:    blobs,
		codec:    c,
		results:  resultstore.New(blobs, resultstore.WithCodec(c), resultstore.WithCompression(compression), resultstore.WithResourceController(rc)),
		registry: reg,
		metrics:  metrics,
		engine:   clusterkit.New(engOpts...),
	}, nil
}

func (a *app) handler() http.Handler {
	return server.New(a.engine, a.blobs,
		server.WithConfig(a.cfg.Server),
		server.WithResultStore(a.results),
		server.WithResourceController(a.rc),
		server.WithMetricsCollector(a.metrics),
		server.WithMetricsHandler(a.metrics.Handler()),
		server.WithLogger(a.logger),
		server.WithCodec(a.codec),
	).Handler()
}

// serve runs the HTTP server until ctx is canceled.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", slog.String("addr", a.cfg.Addr), slog.String("store", a.cfg.Store))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
