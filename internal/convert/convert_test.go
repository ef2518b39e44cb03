// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// fakeConverter implements Converter for testing. It returns canned text
// or an error, depending on configuration.
type fakeConverter struct {
	output string
	err    error
	calls  int
}

func (f *fakeConverter) Convert(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

// writeTestPDF writes a one-page PDF whose content stream shows lines.
func writeTestPDF(t *testing.T, dir string, lines ...string) string {
	t.Helper()

	var content strings.Builder
	content.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, l := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", l)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, "2405.00001.pdf")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestFirstLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{"skips blanks", "\n\n  Title of Paper  \n\n\t\nAuthor One\nAbstract", 2, []string{"Title of Paper", "Author One"}},
		{"fewer than n", "only line\n", 3, []string{"only line"}},
		{"crlf", "a\r\n\r\nb\r\nc", 2, []string{"a", "b"}},
		{"empty", "   \n\n", 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstLines(tt.text, tt.n))
		})
	}
}

func TestPreview(t *testing.T) {
	c := &fakeConverter{output: "\n# Quantum Error Correction\n\nAlice Smith\nAbstract text"}
	lines, err := Preview(context.Background(), c, "paper.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"# Quantum Error Correction", "Alice Smith"}, lines)

	lines, err = Preview(context.Background(), c, "paper.pdf", 3)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestPreviewErrors(t *testing.T) {
	tests := []struct {
		name string
		conv *fakeConverter
	}{
		{"converter failure", &fakeConverter{err: errors.New("boom")}},
		{"no text", &fakeConverter{output: "  \n \n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preview(context.Background(), tt.conv, "scan.pdf", 2)
			if !errors.Is(err, types.ErrExtraction) {
				t.Errorf("err = %v, want ErrExtraction", err)
			}
		})
	}
}

func TestPreviewOrEmpty(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	lines := PreviewOrEmpty(context.Background(), &fakeConverter{err: errors.New("corrupt xref")}, "bad.pdf", 2, log)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "corrupt xref")

	buf.Reset()
	lines = PreviewOrEmpty(context.Background(), &fakeConverter{output: "one\ntwo\nthree"}, "ok.pdf", 2, log)
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Empty(t, buf.String())
}

func TestPDFConverter(t *testing.T) {
	path := writeTestPDF(t, t.TempDir(), "Attention Is All You Need", "Ashish Vaswani", "Abstract")

	lines, err := Preview(context.Background(), &PDFConverter{}, path, 2)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "Attention Is All You Need")
}

func TestPDFConverterRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.pdf")
	require.NoError(t, os.WriteFile(path, []byte("<html>not a pdf</html>"), 0o644))

	_, err := (&PDFConverter{}).Convert(context.Background(), path)
	assert.ErrorIs(t, err, types.ErrExtraction)

	_, err = (&PDFConverter{}).Convert(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestPDFConverterCorruptBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"), 0o644))

	lines := PreviewOrEmpty(context.Background(), &PDFConverter{}, path, 2, zerolog.Nop())
	assert.Empty(t, lines)
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	hasImage bool
	out      string
	err      error
}

func (f *fakeRuntime) Name() string                   { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool { return true }

func (f *fakeRuntime) ImageExists(_ context.Context, image string) error {
	if !f.hasImage {
		return errors.New("no such image " + image)
	}
	return nil
}

func (f *fakeRuntime) Run(_ context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	if f.err != nil {
		return f.err
	}
	io.Copy(io.Discard, stdin)
	_, err := io.WriteString(stdout, f.out)
	return err
}

func TestMarkitdownConverter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	_, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{}, "")
	assert.ErrorIs(t, err, types.ErrConfiguration)

	m, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{hasImage: true, out: "# Title\n\nBody"}, "")
	require.NoError(t, err)
	lines, err := Preview(context.Background(), m, path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"# Title", "Body"}, lines)

	failing, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{hasImage: true, err: errors.New("exit 1")}, "custom:1")
	require.NoError(t, err)
	_, err = failing.Convert(context.Background(), path)
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestNewConverter(t *testing.T) {
	c, err := NewConverter(context.Background(), types.PipelineConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PDFConverter{}, c)

	_, err = NewConverter(context.Background(), types.PipelineConfig{Converter: "ocr"})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
