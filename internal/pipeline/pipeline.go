// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the acquisition workflow for a set of subscriptions:
// search each source, record new and revised papers, download missing
// documents, and store a short text preview of each download.
//
// Failures are isolated. A failed subscription does not stop the next one,
// and a failed paper does not stop its siblings. A run always completes and
// returns a Summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperwatch/internal/acquire"
	"github.com/pdiddy/paperwatch/internal/convert"
	"github.com/pdiddy/paperwatch/internal/logging"
	"github.com/pdiddy/paperwatch/internal/metrics"
	"github.com/pdiddy/paperwatch/internal/search"
	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

const (
	defaultPapersPerSubscription = 10
	defaultWorkers               = 2
)

// Downloader saves a remote document to a local path.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}

// Deps wires the components a Pipeline drives.
type Deps struct {
	Registry      *search.Registry
	Store         *store.Store
	Downloader    Downloader
	Converter     convert.Converter
	Subscriptions []types.Subscription
	Config        types.PipelineConfig
	Log           zerolog.Logger
	Metrics       *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline orchestrates one run at a time. Callers serialize runs; the
// scheduler does this for recurring and manual triggers.
type Pipeline struct {
	registry   *search.Registry
	store      *store.Store
	downloader Downloader
	converter  convert.Converter
	subs       []types.Subscription
	cfg        types.PipelineConfig
	log        zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New constructs a Pipeline, filling unset limits with defaults.
func New(deps Deps) *Pipeline {
	p := &Pipeline{
		registry:   deps.Registry,
		store:      deps.Store,
		downloader: deps.Downloader,
		converter:  deps.Converter,
		subs:       deps.Subscriptions,
		cfg:        deps.Config,
		log:        deps.Log.With().Str("component", "pipeline").Logger(),
		metrics:    deps.Metrics,
		now:        deps.Now,
	}
	if p.cfg.PapersPerSubscription <= 0 {
		p.cfg.PapersPerSubscription = defaultPapersPerSubscription
	}
	if p.cfg.Workers <= 0 {
		p.cfg.Workers = defaultWorkers
	}
	if p.cfg.PreviewLines <= 0 {
		p.cfg.PreviewLines = convert.DefaultPreviewLines
	}
	if p.metrics == nil {
		p.metrics = metrics.New(nil)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// RunOptions selects what a run covers.
type RunOptions struct {
	// Subscription restricts the run to the named subscription, enabled or
	// not. Empty runs every enabled subscription.
	Subscription string

	// Stop, when closed, ends the run at the next paper or subscription
	// boundary. Work already in flight finishes.
	Stop <-chan struct{}
}

// Run executes one pass over the selected subscriptions. The only error it
// returns is an unknown subscription name; everything else is logged,
// counted in the Summary, and skipped.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	subs, err := p.selectSubscriptions(opts.Subscription)
	if err != nil {
		return Summary{}, err
	}

	r := &run{
		p:     p,
		stop:  opts.Stop,
		start: p.now(),
		sum:   Summary{RunID: uuid.NewString()},
	}
	r.log = p.log.With().Str("run_id", r.sum.RunID).Logger()
	r.log.Info().Int("subscriptions", len(subs)).Msg("run started")

	for _, sub := range subs {
		if r.stopped(ctx) {
			break
		}
		r.sum.Subscriptions++
		if err := r.subscription(ctx, sub); err != nil {
			r.sum.SubscriptionsFailed++
			sublog := logging.WithSubscription(r.log, sub.Name)
			sublog.Warn().Err(err).Msg("subscription failed")
		}
	}

	r.sum.Duration = p.now().Sub(r.start)
	outcome := metrics.OutcomeOK
	if r.sum.HasFailures() {
		outcome = metrics.OutcomeFailed
	}
	p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	p.metrics.RunDuration.Observe(r.sum.Duration.Seconds())
	r.sum.log(r.log)
	return r.sum, nil
}

func (p *Pipeline) selectSubscriptions(name string) ([]types.Subscription, error) {
	if name == "" {
		return types.ActiveSubscriptions(p.subs), nil
	}
	for _, s := range p.subs {
		if s.Name == name {
			return []types.Subscription{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown subscription %q", types.ErrConfiguration, name)
}

// run carries the state of one Run call.
type run struct {
	p     *Pipeline
	log   zerolog.Logger
	stop  <-chan struct{}
	start time.Time

	mu  sync.Mutex
	sum Summary
}

// stopped reports whether the run should start no more work, and records it.
func (r *run) stopped(ctx context.Context) bool {
	select {
	case <-r.stop:
	case <-ctx.Done():
	default:
		return false
	}
	r.mu.Lock()
	r.sum.Stopped = true
	r.mu.Unlock()
	return true
}

func (r *run) count(f func(*Summary)) {
	r.mu.Lock()
	f(&r.sum)
	r.mu.Unlock()
}

// job is a paper whose document still has to be fetched.
type job struct {
	rowID int64
	paper types.Paper
}

func (r *run) subscription(ctx context.Context, sub types.Subscription) error {
	log := logging.WithSubscription(r.log, sub.Name)
	if err := sub.Validate(); err != nil {
		return err
	}

	papers, err := r.search(ctx, sub, log)
	if err != nil {
		return err
	}
	if len(papers) > r.p.cfg.PapersPerSubscription {
		papers = papers[:r.p.cfg.PapersPerSubscription]
	}
	r.count(func(s *Summary) { s.Fetched += len(papers) })
	log.Info().Int("papers", len(papers)).Msg("search complete")

	var jobs []job
	for _, paper := range papers {
		if r.stopped(ctx) {
			return nil
		}
		if j, ok := r.record(ctx, paper, log); ok {
			jobs = append(jobs, j)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.p.cfg.Workers)
	for _, j := range jobs {
		if r.stopped(ctx) {
			break
		}
		g.Go(func() error {
			// A worker slot may free up only after stop was signalled.
			if r.stopped(ctx) {
				return nil
			}
			r.document(ctx, j, log)
			return nil
		})
	}
	return g.Wait()
}

// search queries every source of the subscription and concatenates the
// results in source order, keeping the first copy of each external id. Any
// source failure fails the subscription.
func (r *run) search(ctx context.Context, sub types.Subscription, log zerolog.Logger) ([]types.Paper, error) {
	qopts := search.QueryOptions{MaxResults: r.p.cfg.MaxResults}
	if r.p.cfg.Lookback > 0 {
		qopts.From, qopts.To = search.SinceWindow(r.start, r.p.cfg.Lookback)
	}

	var all []types.Paper
	seen := make(map[string]bool)
	for _, name := range sub.SourceNames() {
		src, err := r.p.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		query, err := src.BuildQuery(sub, qopts)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("source", name).Str("query", query).Msg("searching")

		raw, err := src.Fetch(ctx, query)
		if err != nil {
			r.p.metrics.SearchesTotal.WithLabelValues(name, metrics.OutcomeFailed).Inc()
			return nil, fmt.Errorf("searching %s: %w", name, err)
		}
		papers, err := src.Parse(raw)
		if err != nil {
			r.p.metrics.SearchesTotal.WithLabelValues(name, metrics.OutcomeFailed).Inc()
			return nil, fmt.Errorf("parsing %s response: %w", name, err)
		}
		r.p.metrics.SearchesTotal.WithLabelValues(name, metrics.OutcomeOK).Inc()
		for _, paper := range papers {
			if seen[paper.ExternalID] {
				log.Debug().Str("source", name).Str("external_id", paper.ExternalID).Msg("duplicate result")
				continue
			}
			seen[paper.ExternalID] = true
			all = append(all, paper)
		}
	}
	return all, nil
}

// record persists the paper's metadata and reports whether its document
// still needs fetching.
func (r *run) record(ctx context.Context, paper types.Paper, log zerolog.Logger) (job, bool) {
	plog := logging.WithPaper(log, paper.ExternalID)

	existing, err := r.p.store.Get(ctx, paper.ExternalID)
	if errors.Is(err, store.ErrNotFound) {
		id, err := r.p.store.Upsert(ctx, paper)
		if err != nil {
			r.fail(plog, "upsert", err)
			return job{}, false
		}
		r.count(func(s *Summary) { s.New++ })
		r.p.metrics.PapersTotal.WithLabelValues(metrics.OutcomeNew).Inc()
		paper.ID = id
		return job{rowID: id, paper: paper}, true
	}
	if err != nil {
		r.fail(plog, "get", err)
		return job{}, false
	}

	// Each paper lands in exactly one of New, Updated and Skipped.
	changed := metadataChanged(*existing, paper)
	if changed {
		if _, err := r.p.store.Upsert(ctx, paper); err != nil {
			r.fail(plog, "upsert", err)
			return job{}, false
		}
		r.count(func(s *Summary) { s.Updated++ })
		r.p.metrics.PapersTotal.WithLabelValues(metrics.OutcomeUpdated).Inc()
		plog.Debug().Msg("metadata revised")
	}

	if existing.HasDocument() {
		if !changed {
			r.count(func(s *Summary) { s.Skipped++ })
			r.p.metrics.PapersTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		}
		return job{}, false
	}
	plog.Debug().Msg("retrying missing document")
	return job{rowID: existing.ID, paper: *existing}, true
}

// document downloads one paper's document, attaches it, and stores a preview.
func (r *run) document(ctx context.Context, j job, log zerolog.Logger) {
	plog := logging.WithPaper(log, j.paper.ExternalID)
	if j.paper.DocumentURL == "" {
		r.fail(plog, "download", fmt.Errorf("%w: no document url", types.ErrConfiguration))
		r.p.metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return
	}

	path := acquire.DocumentPath(r.p.cfg.DocumentsDir, j.paper.ExternalID)
	n, err := r.p.downloader.Download(ctx, j.paper.DocumentURL, path)
	if err != nil {
		r.fail(plog, "download", err)
		r.p.metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return
	}
	r.p.metrics.DownloadsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	r.p.metrics.DownloadBytes.Add(float64(n))

	if err := r.p.store.AttachDocumentPath(ctx, j.rowID, path); err != nil {
		r.fail(plog, "attach", err)
		return
	}
	r.count(func(s *Summary) { s.Downloaded++ })
	plog.Info().Str("path", path).Int64("bytes", n).Msg("document saved")

	if r.p.converter == nil {
		return
	}
	lines := convert.PreviewOrEmpty(ctx, r.p.converter, path, r.p.cfg.PreviewLines, plog)
	if len(lines) == 0 {
		r.p.metrics.PreviewsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return
	}
	if _, err := r.p.store.SaveExtractedContent(ctx, j.rowID, types.ContentPreview, strings.Join(lines, "\n")); err != nil {
		r.fail(plog, "save_preview", err)
		r.p.metrics.PreviewsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return
	}
	r.count(func(s *Summary) { s.Previews++ })
	r.p.metrics.PreviewsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
}

func (r *run) fail(log zerolog.Logger, op string, err error) {
	log.Warn().Err(err).Str("op", op).Msg("paper step failed")
	r.count(func(s *Summary) { s.Failed++ })
	r.p.metrics.PapersTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
}

// metadataChanged reports whether a fetched paper revises any field Upsert
// overwrites.
func metadataChanged(stored, fetched types.Paper) bool {
	return stored.Title != fetched.Title ||
		stored.Abstract != fetched.Abstract ||
		!slices.Equal(stored.Authors, fetched.Authors) ||
		!slices.Equal(stored.Categories, fetched.Categories)
}
