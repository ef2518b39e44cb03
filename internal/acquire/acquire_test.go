// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/internal/httputil"
	"github.com/pdiddy/paperwatch/pkg/types"
)

func testDownloader(timeout time.Duration) *Downloader {
	cfg := types.FetchConfig{MaxRetries: 1, RetryBaseDelay: time.Millisecond}
	cfg.Timeout = timeout
	return NewDownloader(httputil.NewClient(cfg, httputil.NewLimiter(0), zerolog.Nop()), zerolog.Nop())
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2301.07041", "2301.07041"},
		{"hep-th/9901001", "hep-th_9901001"},
		{"  2301.07041 ", "2301.07041"},
		{"", "unknown"},
		{"..", "unknown"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocumentPath(t *testing.T) {
	got := DocumentPath("data/papers", "hep-th/9901001")
	want := filepath.Join("data", "papers", "hep-th_9901001.pdf")
	if got != want {
		t.Errorf("DocumentPath = %q, want %q", got, want)
	}
}

func TestDownload(t *testing.T) {
	body := "%PDF-1.4 fake content"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/pdf" {
			t.Errorf("Accept = %q, want application/pdf", got)
		}
		w.Write([]byte(body))
	}))
	defer ts.Close()

	dir := filepath.Join(t.TempDir(), "papers")
	dest := DocumentPath(dir, "2301.07041")

	n, err := testDownloader(5*time.Second).Download(context.Background(), ts.URL+"/pdf/2301.07041", dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len(body)) {
		t.Errorf("bytes = %d, want %d", n, len(body))
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != body {
		t.Errorf("content = %q, want %q", data, body)
	}
	assertNoTempFiles(t, dir)
}

func TestDownloadHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dir := t.TempDir()
	dest := DocumentPath(dir, "2301.07041")
	_, err := testDownloader(5*time.Second).Download(context.Background(), ts.URL, dest)
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("destination exists after failed download")
	}
	assertNoTempFiles(t, dir)
}

func TestDownloadTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()
	defer close(release)

	dir := t.TempDir()
	dest := DocumentPath(dir, "2301.07041")
	_, err := testDownloader(50*time.Millisecond).Download(context.Background(), ts.URL, dest)
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("destination exists after timed-out download")
	}
}

func TestDownloadEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer ts.Close()

	dir := t.TempDir()
	_, err := testDownloader(5*time.Second).Download(context.Background(), ts.URL, DocumentPath(dir, "x"))
	if !errors.Is(err, types.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
