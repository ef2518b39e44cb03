// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the paperwatch configuration tree through viper,
// applying defaults for every setting the file or environment leaves out.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. PAPERWATCH_FETCH_MIN_DELAY.
const EnvPrefix = "PAPERWATCH"

// Default returns the configuration used when nothing is overridden.
func Default() types.Config {
	return types.Config{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "paperwatch/0.1 (+https://github.com/pdiddy/paperwatch)",
			},
			MinDelay:       time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
			APIBase:        "https://export.arxiv.org/api/query",
			PDFBase:        "https://arxiv.org/pdf/",
		},
		Store: types.StoreConfig{
			Path:        filepath.Join("data", "paperwatch.db"),
			BusyTimeout: 5 * time.Second,
		},
		Pipeline: types.PipelineConfig{
			DocumentsDir:          filepath.Join("data", "papers"),
			PapersPerSubscription: 10,
			MaxResults:            50,
			Workers:               2,
			PreviewLines:          2,
			Converter:             types.ConverterPDF,
			MarkitdownImage:       "markitdown:latest",
		},
		Schedule: types.ScheduleConfig{
			TimeOfDay: "08:00",
			Timezone:  "UTC",
		},
		Logging: types.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Subscriptions: []types.Subscription{{
			Name:       "machine learning",
			Keywords:   []string{"machine learning", "deep learning"},
			Sources:    []string{types.DefaultSource},
			Categories: []string{"cs.LG", "cs.AI"},
			Enabled:    true,
		}},
	}
}

// SetDefaults registers Default() with v so that unmarshaling fills every
// key the config file omits.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.min_delay", d.Fetch.MinDelay)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("fetch.retry_base_delay", d.Fetch.RetryBaseDelay)
	v.SetDefault("fetch.api_base", d.Fetch.APIBase)
	v.SetDefault("fetch.pdf_base", d.Fetch.PDFBase)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.busy_timeout", d.Store.BusyTimeout)

	v.SetDefault("pipeline.documents_dir", d.Pipeline.DocumentsDir)
	v.SetDefault("pipeline.papers_per_subscription", d.Pipeline.PapersPerSubscription)
	v.SetDefault("pipeline.max_results", d.Pipeline.MaxResults)
	v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	v.SetDefault("pipeline.preview_lines", d.Pipeline.PreviewLines)
	v.SetDefault("pipeline.lookback", d.Pipeline.Lookback)
	v.SetDefault("pipeline.converter", string(d.Pipeline.Converter))
	v.SetDefault("pipeline.container_runtime", d.Pipeline.ContainerRuntime)
	v.SetDefault("pipeline.markitdown_image", d.Pipeline.MarkitdownImage)

	v.SetDefault("schedule.time_of_day", d.Schedule.TimeOfDay)
	v.SetDefault("schedule.timezone", d.Schedule.Timezone)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.addr", d.Metrics.Addr)

	subs := make([]map[string]any, len(d.Subscriptions))
	for i, s := range d.Subscriptions {
		subs[i] = map[string]any{
			"name":       s.Name,
			"keywords":   s.Keywords,
			"sources":    s.Sources,
			"categories": s.Categories,
			"enabled":    s.Enabled,
		}
	}
	v.SetDefault("subscriptions", subs)
}

// BindEnv makes every key overridable from PAPERWATCH_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults and unmarshals v into a Config. It rejects settings
// no run could use; individual subscriptions are validated by the pipeline
// so that one bad subscription does not stop the others.
func Load(v *viper.Viper) (types.Config, error) {
	SetDefaults(v)

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("%w: decoding configuration: %w", types.ErrConfiguration, err)
	}
	if err := validate(&cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func validate(cfg *types.Config) error {
	if cfg.Fetch.MinDelay < 0 {
		return fmt.Errorf("%w: fetch.min_delay must not be negative", types.ErrConfiguration)
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("%w: store.path is empty", types.ErrConfiguration)
	}
	if cfg.Pipeline.DocumentsDir == "" {
		return fmt.Errorf("%w: pipeline.documents_dir is empty", types.ErrConfiguration)
	}
	if cfg.Pipeline.Workers < 1 {
		cfg.Pipeline.Workers = 1
	}
	if cfg.Pipeline.PapersPerSubscription < 1 {
		return fmt.Errorf("%w: pipeline.papers_per_subscription must be at least 1", types.ErrConfiguration)
	}
	switch cfg.Pipeline.Converter {
	case types.ConverterPDF, types.ConverterMarkitdown:
	default:
		return fmt.Errorf("%w: pipeline.converter %q is not pdf or markitdown", types.ErrConfiguration, cfg.Pipeline.Converter)
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("%w: schedule.timezone: %w", types.ErrConfiguration, err)
	}

	seen := make(map[string]bool, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate subscription name %q", types.ErrConfiguration, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// WriteDefault writes Default() as YAML to path unless the file exists. It
// reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, fmt.Errorf("marshaling default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
