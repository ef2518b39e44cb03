// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/internal/httputil"
	"github.com/pdiddy/paperwatch/internal/metrics"
	"github.com/pdiddy/paperwatch/pkg/types"
)

const (
	// ArxivSourceName identifies arXiv in subscription source lists.
	ArxivSourceName = "arxiv"

	// DefaultArxivAPIBase is the arXiv search endpoint.
	DefaultArxivAPIBase = "https://export.arxiv.org/api/query"

	maxFeedBytes = 10 << 20
)

// rateExceeded is what arXiv returns, with a 200, when it throttles a client.
var rateExceeded = []byte("Rate exceeded")

// ArxivSource queries the arXiv API.
type ArxivSource struct {
	Client  *httputil.Client
	APIBase string
	PDFBase string
	Log     zerolog.Logger

	// Metrics, when set, counts dropped entries.
	Metrics *metrics.Metrics
}

// NewArxivSource builds an arXiv source on a shared client.
func NewArxivSource(client *httputil.Client, cfg types.FetchConfig, log zerolog.Logger) *ArxivSource {
	s := &ArxivSource{
		Client:  client,
		APIBase: cfg.APIBase,
		PDFBase: cfg.PDFBase,
		Log:     log.With().Str("source", ArxivSourceName).Logger(),
	}
	if s.APIBase == "" {
		s.APIBase = DefaultArxivAPIBase
	}
	if s.PDFBase == "" {
		s.PDFBase = DefaultPDFBase
	}
	return s
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return ArxivSourceName }

// BuildQuery delegates to BuildArxivQuery.
func (s *ArxivSource) BuildQuery(sub types.Subscription, opts QueryOptions) (string, error) {
	return BuildArxivQuery(sub, opts)
}

// Fetch performs one paced, retried GET against the query endpoint.
func (s *ArxivSource) Fetch(ctx context.Context, query string) ([]byte, error) {
	body, err := s.Client.GetBody(ctx, s.APIBase+"?"+query, maxFeedBytes, func(b []byte) bool {
		return bytes.Contains(b, rateExceeded)
	})
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	return body, nil
}

// Parse decodes a response and logs one warning per dropped entry.
func (s *ArxivSource) Parse(raw []byte) ([]types.Paper, error) {
	res, err := ParseArxivFeed(raw, s.PDFBase)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Dropped {
		s.Log.Warn().Err(d).Msg("dropping malformed entry")
	}
	if s.Metrics != nil && len(res.Dropped) > 0 {
		s.Metrics.EntriesDropped.Add(float64(len(res.Dropped)))
	}
	s.Log.Debug().
		Int("total_results", res.TotalResults).
		Int("parsed", len(res.Papers)).
		Int("dropped", len(res.Dropped)).
		Msg("parsed arXiv feed")
	return res.Papers, nil
}
