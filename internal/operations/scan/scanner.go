package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toolchainworks/relpack/pkg/logger"
	"golang.org/x/sys/unix"
)

// Binary is a discovered executable inside an extracted tree
type Binary struct {
	Name        string
	Path        string
	ContentType string
}

// DisplayName returns the name with a ".exe" suffix stripped
func (b Binary) DisplayName() string {
	if strings.HasSuffix(strings.ToLower(b.Name), ".exe") {
		return b.Name[:len(b.Name)-4]
	}
	return b.Name
}

// Scanner walks an extracted tree and classifies entries as executable
// binaries. An entry qualifies when it is a regular file and either its
// name carries a ".exe" suffix or it is user-executable and the content
// probe reports non-textual content.
type Scanner struct {
	prober Prober
	logger *logger.Logger
}

// NewScanner creates a scanner using the given content-type prober
func NewScanner(prober Prober) *Scanner {
	return &Scanner{
		prober: prober,
		logger: logger.NewLogger("scanner"),
	}
}

// Scan returns the binaries under dir accepted by filter, sorted by name
func (s *Scanner) Scan(ctx context.Context, dir string, filter *Filter) ([]Binary, error) {
	var binaries []Binary

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := d.Name()
		if !filter.Match(name) {
			return nil
		}

		binary, ok, err := s.classify(ctx, name, path)
		if err != nil {
			return err
		}
		if ok {
			binaries = append(binaries, binary)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Slice(binaries, func(i, j int) bool { return binaries[i].Name < binaries[j].Name })

	s.logger.WithFields(logger.Fields{
		"dir":   dir,
		"count": len(binaries),
	}).Info("Scan complete")

	return binaries, nil
}

// classify decides whether a regular file is a binary. Windows
// executables qualify by suffix alone but are still probed so their
// content type lands in the metadata.
func (s *Scanner) classify(ctx context.Context, name, path string) (Binary, bool, error) {
	isExe := strings.HasSuffix(strings.ToLower(name), ".exe")

	if !isExe {
		if err := unix.Access(path, unix.X_OK); err != nil {
			return Binary{}, false, nil
		}
	}

	contentType, err := s.prober.ContentType(ctx, path)
	if err != nil {
		return Binary{}, false, fmt.Errorf("content probe failed for %s: %w", path, err)
	}

	if !isExe && strings.Contains(strings.ToLower(contentType), "text") {
		return Binary{}, false, nil
	}

	return Binary{
		Name:        name,
		Path:        path,
		ContentType: contentType,
	}, true, nil
}
