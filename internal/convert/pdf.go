// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// defaultMaxPages bounds how much of a document is read for a preview.
const defaultMaxPages = 3

var pdfMagic = []byte("%PDF-")

// PDFConverter extracts the text layer of a PDF in-process.
type PDFConverter struct {
	// MaxPages limits extraction to the first pages. Zero reads every page.
	MaxPages int
}

// Convert returns the text of the first MaxPages pages, one page after the
// other. Scanned documents without a text layer yield an empty string.
func (c *PDFConverter) Convert(ctx context.Context, path string) (text string, err error) {
	if err := checkMagic(path); err != nil {
		return "", err
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: reading %s: %v", types.ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %w", types.ErrExtraction, path, err)
	}
	defer f.Close()

	pages := r.NumPage()
	if c.MaxPages > 0 && pages > c.MaxPages {
		pages = c.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d of %s: %w", types.ErrExtraction, i, path, err)
		}
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func checkMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", types.ErrExtraction, path, err)
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("%w: %s is not a PDF", types.ErrExtraction, path)
	}
	return nil
}
