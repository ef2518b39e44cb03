// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/paperwatch/internal/container"
	"github.com/pdiddy/paperwatch/pkg/types"
)

// DefaultMarkitdownImage is the image used when none is configured.
const DefaultMarkitdownImage = "markitdown:latest"

// MarkitdownConverter converts documents by piping them through the
// markitdown container image. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownConverter creates a converter that uses the given container
// runtime to run image. It verifies that the image exists locally before
// returning.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime, image string) (*MarkitdownConverter, error) {
	if image == "" {
		image = DefaultMarkitdownImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("%w: markitdown image not available in %s: %w", types.ErrConfiguration, rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, image: image}, nil
}

// Convert pipes the document at path through the container and returns the
// resulting Markdown text.
func (m *MarkitdownConverter) Convert(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %w", types.ErrExtraction, path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, f, &out); err != nil {
		return "", fmt.Errorf("%w: converting %s with markitdown: %w", types.ErrExtraction, path, err)
	}
	return out.String(), nil
}
