// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperwatch/internal/acquire"
	"github.com/pdiddy/paperwatch/internal/config"
	"github.com/pdiddy/paperwatch/internal/convert"
	"github.com/pdiddy/paperwatch/internal/httputil"
	"github.com/pdiddy/paperwatch/internal/logging"
	"github.com/pdiddy/paperwatch/internal/metrics"
	"github.com/pdiddy/paperwatch/internal/pipeline"
	"github.com/pdiddy/paperwatch/internal/search"
	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

// app holds the components shared by the commands. The limiter and store
// are constructed once here and injected everywhere they are used.
type app struct {
	cfg      types.Config
	log      zerolog.Logger
	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
}

// loadConfig reads the configuration and builds the logger.
func loadConfig() (types.Config, zerolog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return types.Config{}, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Logging, os.Stderr), nil
}

// openStore loads the configuration and opens the store only, for the
// read-side commands.
func openStore() (types.Config, *store.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return types.Config{}, nil, err
	}
	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return types.Config{}, nil, err
	}
	return cfg, st, nil
}

// newApp wires the full pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	conv, err := convert.NewConverter(ctx, cfg.Pipeline)
	if err != nil {
		st.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	limiter := httputil.NewLimiter(cfg.Fetch.MinDelay)
	client := httputil.NewClient(cfg.Fetch, limiter, log)

	arxiv := search.NewArxivSource(client, cfg.Fetch, log)
	arxiv.Metrics = m

	p := pipeline.New(pipeline.Deps{
		Registry:      search.NewRegistry(arxiv),
		Store:         st,
		Downloader:    acquire.NewDownloader(client, log),
		Converter:     conv,
		Subscriptions: cfg.Subscriptions,
		Config:        cfg.Pipeline,
		Log:           log,
		Metrics:       m,
	})

	log.Debug().
		Dur("min_delay", limiter.MinDelay()).
		Str("store", cfg.Store.Path).
		Str("converter", string(cfg.Pipeline.Converter)).
		Int("subscriptions", len(cfg.Subscriptions)).
		Msg("pipeline ready")

	return &app{cfg: cfg, log: log, store: st, registry: reg, metrics: m, pipeline: p}, nil
}

func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
