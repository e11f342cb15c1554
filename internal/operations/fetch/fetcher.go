package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/toolchainworks/relpack/internal/config"
	"github.com/toolchainworks/relpack/internal/operations/cache"
	"github.com/toolchainworks/relpack/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	// chunkSize is the fixed copy buffer for streaming response bodies
	chunkSize = 32 * 1024

	userAgent = "relpack/1.0"
)

// Fetcher downloads release archives into the cache store. A download is a
// single attempt: HTTP failures propagate to the caller, which does not
// retry.
type Fetcher struct {
	httpClient *http.Client
	store      *cache.Store
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// NewFetcher creates a fetcher bound to a cache store
func NewFetcher(store *cache.Store, cfg config.DownloadConfig) *Fetcher {
	var limiter *rate.Limiter
	if cfg.LimitRate > 0 {
		burst := chunkSize
		if cfg.LimitRate > int64(burst) {
			burst = int(cfg.LimitRate)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.LimitRate), burst)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		limiter:    limiter,
		logger:     logger.NewLogger("fetcher"),
	}
}

// Fetch returns the local path of the archive at url, downloading it into
// the cache store unless a cached copy already exists.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	destPath, err := f.store.ArchivePath(url)
	if err != nil {
		return "", err
	}

	if f.store.Enabled() {
		if _, err := os.Stat(destPath); err == nil {
			if err := f.store.CheckSlot(destPath, url); err != nil {
				return "", err
			}
			f.logger.WithFields(logger.Fields{"path": destPath}).Info("Cache hit, using cached archive")
			return destPath, nil
		}
	}

	f.logger.WithFields(logger.Fields{
		"url":  url,
		"dest": destPath,
	}).Info("Downloading archive")

	if err := f.download(ctx, url, destPath); err != nil {
		return "", err
	}

	if err := f.store.RecordSlot(destPath, url); err != nil {
		return "", err
	}

	return destPath, nil
}

// download streams the response body to destPath via a temp file
func (f *Fetcher) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.WithError(err).Error("Failed to download archive")
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	written, err := f.copyChunked(ctx, tmpFile, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to save archive: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move archive into cache: %w", err)
	}
	cleanupNeeded = false

	f.logger.WithFields(logger.Fields{"bytes": written}).Info("Download complete")
	return nil
}

// copyChunked copies src to dst in fixed-size chunks, honoring context
// cancellation and the optional bandwidth limiter between chunks.
func (f *Fetcher) copyChunked(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, readErr := src.Read(buf)
		if nr > 0 {
			if f.limiter != nil {
				if err := f.limiter.WaitN(ctx, nr); err != nil {
					return written, err
				}
			}

			nw, writeErr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if writeErr != nil {
				return written, writeErr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
