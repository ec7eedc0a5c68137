// Package fetch downloads generated assets to local storage under a bounded
// admission pool. Download concurrency is a different resource than
// generation concurrency, so the fetcher owns its own pool and never shares
// one with the generation scheduler.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mixdown/internal/batch"
	"mixdown/internal/services"
)

const defaultHTTPTimeout = 5 * time.Minute

// Kind labels what a fetched asset contains.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Request names one asset to download.
type Request struct {
	URL  string
	Path string
	Kind Kind
}

// Asset is a downloaded artifact. Once fetched, it is never fetched again.
type Asset struct {
	URL  string
	Path string
	Size int64
	Kind Kind
}

// Fetcher downloads assets with bounded concurrency.
type Fetcher struct {
	httpClient *http.Client
	limit      int64
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// New constructs a fetcher with the given download concurrency cap.
func New(limit int, opts ...Option) *Fetcher {
	if limit <= 0 {
		limit = 1
	}
	fetcher := &Fetcher{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limit:      int64(limit),
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// FetchAll downloads every request, at most the configured number in flight
// at once. Outcomes preserve request order; a failed download is recorded
// against its slot and never aborts siblings.
func (f *Fetcher) FetchAll(ctx context.Context, requests []Request) []batch.Outcome[Asset] {
	return batch.RunAll(ctx, requests, f.limit, func(ctx context.Context, _ int, req Request) (Asset, error) {
		return f.Fetch(ctx, req)
	})
}

// Fetch streams one URL to its local path. An existing file at the target
// path is reused without re-downloading.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Asset, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Asset{}, services.Wrap(services.ErrValidation, "fetching", "download", "url required", nil)
	}
	if strings.TrimSpace(req.Path) == "" {
		return Asset{}, services.Wrap(services.ErrValidation, "fetching", "download", "target path required", nil)
	}

	if info, err := os.Stat(req.Path); err == nil && info.Size() > 0 {
		return Asset{URL: req.URL, Path: req.Path, Size: info.Size(), Kind: req.Kind}, nil
	}

	if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		return Asset{}, services.Wrap(services.ErrPermanent, "fetching", "download", "create directory", err)
	}

	size, err := f.download(ctx, req.URL, req.Path)
	if err != nil {
		return Asset{}, err
	}
	return Asset{URL: req.URL, Path: req.Path, Size: size, Kind: req.Kind}, nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "fetching", "download", "new request", err)
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, services.Wrap(services.ErrTransient, "fetching", "download", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			marker = services.ErrPermanent
		}
		return 0, services.Wrap(marker, "fetching", "download",
			fmt.Sprintf("%s: http %d", url, resp.StatusCode), nil)
	}

	// Stream into a temp name so a partial download never masquerades as a
	// fetched asset.
	partial := path + ".partial"
	file, err := os.Create(partial)
	if err != nil {
		return 0, services.Wrap(services.ErrPermanent, "fetching", "download", "create file", err)
	}

	size, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(partial)
		return 0, services.Wrap(services.ErrTransient, "fetching", "download", url, errors.Join(copyErr, closeErr))
	}
	if size == 0 {
		os.Remove(partial)
		return 0, services.Wrap(services.ErrTransient, "fetching", "download", url+": empty body", nil)
	}
	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return 0, services.Wrap(services.ErrPermanent, "fetching", "download", "finalize file", err)
	}
	return size, nil
}
