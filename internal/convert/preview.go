// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// DefaultPreviewLines is the preview length when none is configured.
const DefaultPreviewLines = 2

// Preview returns the first n non-blank lines of the document's text,
// trimmed. A document with no text at all is an extraction error.
func Preview(ctx context.Context, c Converter, path string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultPreviewLines
	}
	text, err := c.Convert(ctx, path)
	if err != nil {
		if errors.Is(err, types.ErrExtraction) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", types.ErrExtraction, path, err)
	}

	lines := FirstLines(text, n)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text", types.ErrExtraction, path)
	}
	return lines, nil
}

// PreviewOrEmpty is Preview with every failure converted to an empty result
// and a warning on log.
func PreviewOrEmpty(ctx context.Context, c Converter, path string, n int, log zerolog.Logger) []string {
	lines, err := Preview(ctx, c, path, n)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("preview unavailable")
		return []string{}
	}
	return lines
}

// FirstLines returns up to n trimmed, non-blank lines of text.
func FirstLines(text string, n int) []string {
	var out []string
	for line := range strings.Lines(text) {
		if len(out) == n {
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
