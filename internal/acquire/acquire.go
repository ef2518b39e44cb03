// Package acquire downloads source documents to local storage.
//
// Downloads go through the same paced, retrying client as searches, so the
// process-wide request spacing holds no matter how many downloads run at once.
package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/internal/httputil"
	"github.com/pdiddy/paperwatch/pkg/types"
)

const pdfAccept = "application/pdf"

// Downloader streams remote documents to disk.
type Downloader struct {
	Client *httputil.Client
	Log    zerolog.Logger
}

// NewDownloader returns a Downloader on a shared client.
func NewDownloader(client *httputil.Client, log zerolog.Logger) *Downloader {
	return &Downloader{Client: client, Log: log.With().Str("component", "acquire").Logger()}
}

// Download fetches url into destPath and returns the number of bytes
// written. The body is streamed to a temporary file in the destination
// directory and renamed into place only on success, so a failed or
// interrupted download never leaves a partial file at destPath. Failures
// wrap types.ErrNetwork.
func (d *Downloader) Download(ctx context.Context, url, destPath string) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	resp, err := d.Client.Get(ctx, url, pdfAccept)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp(dir, ".acquire-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: writing download from %s: %w", types.ErrNetwork, url, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if n == 0 {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: empty document from %s", types.ErrNetwork, url)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}

	d.Log.Debug().Str("url", url).Str("path", destPath).Int64("bytes", n).Msg("downloaded document")
	return n, nil
}
