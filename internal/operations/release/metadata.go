package release

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Metadata describes one processed release. It is derived entirely from
// the source URL text; nothing is read back from the archive contents.
// Written once per run, never mutated afterwards.
type Metadata struct {
	Product           string   `json:"product"`
	Version           string   `json:"version"`
	Platform          string   `json:"platform"`
	OS                string   `json:"os"`
	ReleaseTag        string   `json:"release_tag"`
	SourceURL         string   `json:"source_url"`
	RunID             string   `json:"run_id"`
	ProcessedBinaries []string `json:"processed_binaries,omitempty"`
	ExtractionDate    string   `json:"extraction_date"`
}

// BinaryMetadata is the per-binary descriptor staged next to each copy
type BinaryMetadata struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Platform       string `json:"platform"`
	OS             string `json:"os"`
	ReleaseID      string `json:"release_id"`
	SourceURL      string `json:"source_url"`
	ContentType    string `json:"content_type"`
	ExtractionDate string `json:"extraction_date"`
}

// NewMetadata derives release metadata from the source URL
func NewMetadata(sourceURL, product, runID string) *Metadata {
	version := DeriveVersion(sourceURL, product)
	arch := DeriveArch(sourceURL)
	osName := DeriveOS(sourceURL)

	return &Metadata{
		Product:        product,
		Version:        version,
		Platform:       arch,
		OS:             osName,
		ReleaseTag:     fmt.Sprintf("%s-%s-%s-%s", strings.ToLower(product), version, arch, osName),
		SourceURL:      sourceURL,
		RunID:          runID,
		ExtractionDate: time.Now().UTC().Format(time.RFC3339),
	}
}

// BinaryID composes the release identifier for one binary
func (m *Metadata) BinaryID(name string) string {
	return fmt.Sprintf("%s-%s-%s-%s", name, m.Version, m.Platform, m.OS)
}

// ForBinary builds the per-binary descriptor
func (m *Metadata) ForBinary(name, contentType string) *BinaryMetadata {
	return &BinaryMetadata{
		Name:           name,
		Version:        m.Version,
		Platform:       m.Platform,
		OS:             m.OS,
		ReleaseID:      m.BinaryID(name),
		SourceURL:      m.SourceURL,
		ContentType:    contentType,
		ExtractionDate: m.ExtractionDate,
	}
}

// DeriveVersion extracts an X.Y.Z version following the product marker in
// the URL, e.g. "LLVM-19.1.2" -> "19.1.2". Returns "unknown" without a
// match.
func DeriveVersion(sourceURL, product string) string {
	pattern := regexp.MustCompile(regexp.QuoteMeta(product) + `-(\d+\.\d+\.\d+)`)
	if match := pattern.FindStringSubmatch(sourceURL); match != nil {
		return match[1]
	}
	return "unknown"
}

// DeriveArch classifies the CPU architecture from URL keywords
func DeriveArch(sourceURL string) string {
	upper := strings.ToUpper(sourceURL)
	switch {
	case strings.Contains(upper, "ARM64"):
		return "arm64"
	case strings.Contains(upper, "X86_64"), strings.Contains(upper, "X64"):
		return "x86_64"
	default:
		return "unknown"
	}
}

// DeriveOS classifies the operating system from URL keywords
func DeriveOS(sourceURL string) string {
	lower := strings.ToLower(sourceURL)
	switch {
	case strings.Contains(lower, "macos"):
		return "darwin"
	case strings.Contains(lower, "linux"):
		return "linux"
	case strings.Contains(lower, "windows"), strings.Contains(lower, "win64"):
		return "windows"
	default:
		return "unknown"
	}
}

// writeJSON writes v to path as pretty-printed JSON
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
