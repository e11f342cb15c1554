package cache

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/toolchainworks/relpack/internal/config"
	"github.com/toolchainworks/relpack/pkg/logger"
)

// Sidecar suffix recording which URL populated a cache slot. Two distinct
// URLs sharing a filename resolve to the same slot; the sidecar turns that
// silent aliasing into a detectable collision.
const sourceSuffix = ".source"

// Store maps source URLs to deterministic local cache paths. Download slots
// live under the cache directory, extraction slots under the extract
// directory. No hashing is involved: the slot name is derived from the
// URL's final path segment only.
type Store struct {
	cacheDir   string
	extractDir string
	enabled    bool
	logger     *logger.Logger
}

// NewStore creates a cache store from configuration
func NewStore(cfg config.CacheConfig) *Store {
	return &Store{
		cacheDir:   cfg.Dir,
		extractDir: cfg.ExtractDir,
		enabled:    cfg.Enabled,
		logger:     logger.NewLogger("cache"),
	}
}

// Enabled reports whether cached artifacts may be reused
func (s *Store) Enabled() bool {
	return s.enabled
}

// CacheDir returns the download cache root
func (s *Store) CacheDir() string {
	return s.cacheDir
}

// ExtractDir returns the extraction cache root
func (s *Store) ExtractDir() string {
	return s.extractDir
}

// ArchivePath returns the download slot for a URL: the cache directory
// joined with the URL's final path segment.
func (s *Store) ArchivePath(rawURL string) (string, error) {
	name, err := urlFilename(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.cacheDir, name), nil
}

// ExtractPath returns the extraction slot for a URL: the extract directory
// joined with the URL's file stem. A trailing ".tar" left over after
// stripping the compression extension is removed too, so
// "archive.tar.xz" and "archive.tar.gz" both land in "archive".
func (s *Store) ExtractPath(rawURL string) (string, error) {
	name, err := urlFilename(rawURL)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	stem = strings.TrimSuffix(stem, ".tar")
	if stem == "" {
		return "", fmt.Errorf("cannot derive extraction directory from URL %q", rawURL)
	}
	return filepath.Join(s.extractDir, stem), nil
}

// CheckSlot verifies that an existing slot was populated from rawURL.
// A recorded URL that differs means two sources collided on one filename;
// that is reported as an error rather than silently reusing the slot.
func (s *Store) CheckSlot(slotPath, rawURL string) error {
	recorded, err := os.ReadFile(slotPath + sourceSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			// Slot predates source tracking; accept it
			return nil
		}
		return fmt.Errorf("failed to read cache source record: %w", err)
	}

	if string(recorded) != rawURL {
		return fmt.Errorf("cache slot %s already holds %s (requested %s): filename collision, run clean or use --no-cache",
			slotPath, strings.TrimSpace(string(recorded)), rawURL)
	}
	return nil
}

// RecordSlot records the URL that populated a slot
func (s *Store) RecordSlot(slotPath, rawURL string) error {
	if err := os.WriteFile(slotPath+sourceSuffix, []byte(rawURL), 0644); err != nil {
		return fmt.Errorf("failed to record cache source: %w", err)
	}
	return nil
}

// Clean recursively deletes both cache roots
func (s *Store) Clean() error {
	for _, dir := range []string{s.cacheDir, s.extractDir} {
		if dir == "" {
			continue
		}
		s.logger.WithFields(logger.Fields{"dir": dir}).Info("Cleaning cache directory")
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean cache directory %s: %w", dir, err)
		}
	}
	return nil
}

// urlFilename extracts the final path segment of a URL
func urlFilename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("URL %q has no usable filename", rawURL)
	}
	return name, nil
}
