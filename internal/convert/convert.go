// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert pulls plain text out of downloaded documents and reduces it
// to a short preview.
//
// Extraction is best-effort. Preview reports failures as errors wrapping
// types.ErrExtraction; PreviewOrEmpty turns every such failure into an empty
// preview and a logged warning, which is what the pipeline calls.
package convert

import (
	"context"
	"fmt"

	"github.com/pdiddy/paperwatch/internal/container"
	"github.com/pdiddy/paperwatch/pkg/types"
)

// Converter transforms a document into plain text or Markdown. Different
// backends (native PDF parsing, markitdown) implement this interface.
type Converter interface {
	// Convert reads the document at path and returns its text.
	Convert(ctx context.Context, path string) (string, error)
}

// NewConverter returns the backend selected by cfg.Converter.
func NewConverter(ctx context.Context, cfg types.PipelineConfig) (Converter, error) {
	switch cfg.Converter {
	case "", types.ConverterPDF:
		return &PDFConverter{MaxPages: defaultMaxPages}, nil
	case types.ConverterMarkitdown:
		rt, err := container.DetectRuntime(ctx, cfg.ContainerRuntime)
		if err != nil {
			return nil, fmt.Errorf("%w: markitdown converter: %w", types.ErrConfiguration, err)
		}
		return NewMarkitdownConverter(ctx, rt, cfg.MarkitdownImage)
	default:
		return nil, fmt.Errorf("%w: unknown converter %q", types.ErrConfiguration, cfg.Converter)
	}
}
