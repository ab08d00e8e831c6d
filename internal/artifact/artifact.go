// Package artifact makes sure the model file exists locally, fetching it
// once over HTTP when it does not.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

var ErrNoSource = errors.New("artifact missing and no download URL configured")

type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher returns a Fetcher whose GET is bounded by timeout (0 = none).
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("artifact"),
	}
}

// NewFetcherWithClient is used when the caller owns the transport.
func NewFetcherWithClient(client *http.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger.Named("artifact")}
}

// Ensure returns immediately when path exists. Otherwise it downloads url
// and writes the body verbatim to path. The file only appears at path after
// the whole body has been written, so a failed fetch leaves nothing behind.
// An existing file is never re-validated.
func (f *Fetcher) Ensure(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		f.logger.Debug("artifact present", zap.String("path", path))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if url == "" {
		return fmt.Errorf("%s: %w", path, ErrNoSource)
	}

	f.logger.Info("fetching artifact", zap.String("url", url), zap.String("path", path))
	start := time.Now()

	n, err := f.download(ctx, path, url)
	if err != nil {
		return err
	}

	f.logger.Info("artifact stored",
		zap.String("path", path),
		zap.Int64("bytes", n),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (f *Fetcher) download(ctx context.Context, path, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("move artifact into place: %w", err)
	}
	return n, nil
}
