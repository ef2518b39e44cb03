// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ExportEntry holds a paper with its previews for export.
type ExportEntry struct {
	types.Paper `yaml:",inline"`
	Previews    []string `json:"previews,omitempty" yaml:"previews,omitempty"`
}

// Export writes the papers matching opts, each with its previews, to w as
// YAML or JSON. A zero Limit exports everything.
func (s *Store) Export(ctx context.Context, opts ListOptions, format string, w io.Writer) (int, error) {
	if opts.Limit == 0 {
		opts.Limit = -1
	}
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return 0, fmt.Errorf("marshaling YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return 0, fmt.Errorf("marshaling YAML: %w", err)
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return 0, fmt.Errorf("marshaling JSON: %w", err)
		}
	default:
		return 0, fmt.Errorf("%w: unknown export format %q", types.ErrConfiguration, format)
	}
	return len(entries), nil
}

func (s *Store) exportEntries(ctx context.Context, opts ListOptions) ([]ExportEntry, error) {
	papers, err := s.ListPapers(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(papers))
	for i, p := range papers {
		entries[i] = ExportEntry{Paper: p}
		previews, err := s.Previews(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range previews {
			entries[i].Previews = append(entries[i].Previews, c.Payload)
		}
	}
	return entries, nil
}
