package extract

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/toolchainworks/relpack/internal/operations/cache"
	"github.com/toolchainworks/relpack/pkg/logger"
	"github.com/ulikunitz/xz"
)

// Extractor unpacks tar-family release archives into the extraction cache.
// Archives that wrap their contents in a single top-level directory are
// re-rooted so extracted paths never carry that wrapper component.
type Extractor struct {
	store  *cache.Store
	logger *logger.Logger
}

// NewExtractor creates an extractor bound to a cache store
func NewExtractor(store *cache.Store) *Extractor {
	return &Extractor{
		store:  store,
		logger: logger.NewLogger("extractor"),
	}
}

// Extract unpacks the archive downloaded from url and returns the
// extraction directory. With caching enabled an existing directory is
// reused as-is; otherwise any stale directory is removed first.
func (e *Extractor) Extract(url, archivePath string) (string, error) {
	destDir, err := e.store.ExtractPath(url)
	if err != nil {
		return "", err
	}

	if e.store.Enabled() {
		if info, err := os.Stat(destDir); err == nil && info.IsDir() {
			if err := e.store.CheckSlot(destDir, url); err != nil {
				return "", err
			}
			e.logger.WithFields(logger.Fields{"dir": destDir}).Info("Using cached extraction")
			return destDir, nil
		}
	}

	e.logger.WithFields(logger.Fields{
		"archive": archivePath,
		"dir":     destDir,
	}).Info("Extracting archive")

	if err := os.RemoveAll(destDir); err != nil {
		return "", fmt.Errorf("failed to remove stale extraction directory: %w", err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}

	if err := e.extractTo(archivePath, destDir); err != nil {
		return "", err
	}

	if err := e.store.RecordSlot(destDir, url); err != nil {
		return "", err
	}

	e.logger.Info("Extraction complete")
	return destDir, nil
}

// extractTo unpacks every archive member into destDir. The archive is read
// twice: one pass to decide the root-stripping policy, one pass to extract.
func (e *Extractor) extractTo(archivePath, destDir string) error {
	stripRoot, err := e.hasNestedPaths(archivePath)
	if err != nil {
		return err
	}

	tarReader, closeArchive, err := openArchive(archivePath)
	if err != nil {
		return err
	}
	defer closeArchive()

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive header: %w", err)
		}

		name := header.Name
		if stripRoot {
			name = stripFirstComponent(name)
			if name == "" {
				// The root entry itself
				continue
			}
		}

		target := filepath.Join(destDir, name)

		// Path traversal guard
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal member path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
			}

			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", target, err)
			}

			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return fmt.Errorf("failed to write file %s: %w", target, err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("failed to close file %s: %w", target, err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				// Toolchain tarballs occasionally ship duplicate or broken links
				e.logger.Warnf("skipping symlink %s -> %s: %v", target, header.Linkname, err)
			}

		default:
			// Skip char devices, block devices, fifos
			continue
		}
	}

	return nil
}

// hasNestedPaths reports whether any member path contains a separator.
// When true the archive follows the "everything inside one top-level
// folder" convention and the first component of every member is dropped.
func (e *Extractor) hasNestedPaths(archivePath string) (bool, error) {
	tarReader, closeArchive, err := openArchive(archivePath)
	if err != nil {
		return false, err
	}
	defer closeArchive()

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read archive header: %w", err)
		}

		if strings.Contains(strings.TrimSuffix(header.Name, "/"), "/") {
			return true, nil
		}
	}
}

// stripFirstComponent drops the leading path component of a member name.
// Returns "" for the root entry itself.
func stripFirstComponent(name string) string {
	name = strings.TrimSuffix(name, "/")
	idx := strings.Index(name, "/")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// openArchive opens a tar-family archive, selecting the decompressor from
// the filename. The returned close function releases the file and any
// compression reader.
func openArchive(archivePath string) (*tar.Reader, func(), error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}

	name := strings.ToLower(filepath.Base(archivePath))

	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		closer := func() {
			gzReader.Close()
			file.Close()
		}
		return tar.NewReader(gzReader), closer, nil

	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		xzReader, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to open xz stream: %w", err)
		}
		return tar.NewReader(xzReader), func() { file.Close() }, nil

	case strings.HasSuffix(name, ".tar.bz2") || strings.HasSuffix(name, ".tbz2"):
		return tar.NewReader(bzip2.NewReader(file)), func() { file.Close() }, nil

	case strings.HasSuffix(name, ".tar"):
		return tar.NewReader(file), func() { file.Close() }, nil

	default:
		file.Close()
		return nil, nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}
}
