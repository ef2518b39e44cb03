// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search turns subscriptions into queries against a literature index,
// fetches the raw responses, and parses them into papers.
//
// Each index is a Source. The pipeline resolves sources by name through a
// Registry and never depends on a concrete index.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Source is one literature index.
type Source interface {
	// Name is the identifier used in a subscription's sources list.
	Name() string

	// BuildQuery turns a subscription into a request query. It performs no
	// I/O and fails with types.ErrConfiguration on an invalid subscription.
	BuildQuery(sub types.Subscription, opts QueryOptions) (string, error)

	// Fetch issues the search request and returns the raw response body.
	Fetch(ctx context.Context, query string) ([]byte, error)

	// Parse decodes a raw response into papers ordered newest first.
	// Individual malformed entries are dropped, not returned as errors.
	Parse(raw []byte) ([]types.Paper, error)
}

// QueryOptions bounds a single search.
type QueryOptions struct {
	Start      int
	MaxResults int

	// From and To, when both set, restrict results to that submission window.
	From time.Time
	To   time.Time
}

// Registry maps source names to implementations.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry returns a registry holding the given sources.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a source.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Lookup returns the source with the given name. An unknown name is a
// configuration error.
func (r *Registry) Lookup(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", types.ErrConfiguration, name)
	}
	return s, nil
}

// Names lists registered sources in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
