package release

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/toolchainworks/relpack/internal/config"
	"github.com/toolchainworks/relpack/internal/operations/scan"
	"github.com/toolchainworks/relpack/pkg/logger"
)

// Packager stages discovered binaries into the output directory. Every
// binary lands in its own release subdirectory together with a per-binary
// descriptor; a shared metadata file for the run sits at the output root.
type Packager struct {
	outputDir string
	logger    *logger.Logger
}

// NewPackager creates a packager writing under the configured output root
func NewPackager(cfg config.OutputConfig) *Packager {
	return &Packager{
		outputDir: cfg.Dir,
		logger:    logger.NewLogger("packager"),
	}
}

// Stage copies the binaries and writes their metadata descriptors.
// meta.ProcessedBinaries is filled with display names before the shared
// descriptor is written.
func (p *Packager) Stage(binaries []scan.Binary, meta *Metadata) error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, 0, len(binaries))
	for _, binary := range binaries {
		names = append(names, binary.DisplayName())
	}
	meta.ProcessedBinaries = names

	if err := writeJSON(filepath.Join(p.outputDir, "metadata.json"), meta); err != nil {
		return err
	}

	for _, binary := range binaries {
		releaseDir := filepath.Join(p.outputDir, meta.BinaryID(binary.DisplayName()))
		if err := os.MkdirAll(releaseDir, 0755); err != nil {
			return fmt.Errorf("failed to create release directory %s: %w", releaseDir, err)
		}

		destPath := filepath.Join(releaseDir, binary.Name)
		if err := copyFile(binary.Path, destPath); err != nil {
			return fmt.Errorf("failed to stage %s: %w", binary.Name, err)
		}

		binMeta := meta.ForBinary(binary.DisplayName(), binary.ContentType)
		if err := writeJSON(filepath.Join(releaseDir, "metadata.json"), binMeta); err != nil {
			return err
		}

		p.logger.WithFields(logger.Fields{
			"binary": binary.Name,
			"dest":   destPath,
		}).Info("Staged binary")
	}

	p.logger.WithFields(logger.Fields{
		"count": len(binaries),
		"dir":   p.outputDir,
	}).Info("Staging complete")

	return nil
}

// copyFile copies src to dst preserving the source permission bits
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	return nil
}
