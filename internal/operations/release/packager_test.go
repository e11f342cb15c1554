package release

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/toolchainworks/relpack/internal/config"
	"github.com/toolchainworks/relpack/internal/operations/scan"
)

func writeBinary(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("\x7fELF fake binary"), mode); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestStageLayout(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "releases")

	clangPath := writeBinary(t, srcDir, "clang", 0755)
	lldPath := writeBinary(t, srcDir, "lld", 0755)

	binaries := []scan.Binary{
		{Name: "clang", Path: clangPath, ContentType: "ELF 64-bit LSB executable"},
		{Name: "lld", Path: lldPath, ContentType: "ELF 64-bit LSB executable"},
	}

	meta := NewMetadata("https://example.com/LLVM-19.1.2-Linux-X64.tar.xz", "LLVM", "run-1")
	packager := NewPackager(config.OutputConfig{Dir: outDir})

	if err := packager.Stage(binaries, meta); err != nil {
		t.Fatalf("Stage() error: %v", err)
	}

	// Shared run descriptor at the output root.
	sharedPath := filepath.Join(outDir, "metadata.json")
	data, err := os.ReadFile(sharedPath)
	if err != nil {
		t.Fatalf("shared metadata missing: %v", err)
	}
	var shared Metadata
	if err := json.Unmarshal(data, &shared); err != nil {
		t.Fatalf("shared metadata not valid JSON: %v", err)
	}
	if len(shared.ProcessedBinaries) != 2 {
		t.Errorf("ProcessedBinaries = %v, want 2 entries", shared.ProcessedBinaries)
	}

	// Each binary gets its own release directory with a copy and descriptor.
	for _, name := range []string{"clang", "lld"} {
		releaseDir := filepath.Join(outDir, name+"-19.1.2-x86_64-linux")

		if _, err := os.Stat(filepath.Join(releaseDir, name)); err != nil {
			t.Errorf("staged copy of %s missing: %v", name, err)
		}

		data, err := os.ReadFile(filepath.Join(releaseDir, "metadata.json"))
		if err != nil {
			t.Fatalf("per-binary metadata for %s missing: %v", name, err)
		}
		var binMeta BinaryMetadata
		if err := json.Unmarshal(data, &binMeta); err != nil {
			t.Fatalf("per-binary metadata for %s not valid JSON: %v", name, err)
		}
		if binMeta.Name != name {
			t.Errorf("descriptor name = %q, want %q", binMeta.Name, name)
		}
		if binMeta.ReleaseID != name+"-19.1.2-x86_64-linux" {
			t.Errorf("descriptor release_id = %q", binMeta.ReleaseID)
		}
		if binMeta.ContentType == "" {
			t.Errorf("descriptor for %s has empty content_type", name)
		}
	}
}

func TestStagePreservesPermissions(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "releases")

	path := writeBinary(t, srcDir, "clang", 0755)
	meta := NewMetadata("https://example.com/LLVM-19.1.2-Linux-X64.tar.xz", "LLVM", "run-1")
	packager := NewPackager(config.OutputConfig{Dir: outDir})

	if err := packager.Stage([]scan.Binary{{Name: "clang", Path: path, ContentType: "ELF"}}, meta); err != nil {
		t.Fatalf("Stage() error: %v", err)
	}

	staged := filepath.Join(outDir, "clang-19.1.2-x86_64-linux", "clang")
	info, err := os.Stat(staged)
	if err != nil {
		t.Fatalf("stat staged copy: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("staged copy lost the owner execute bit: %v", info.Mode())
	}
}

func TestStageWindowsBinaryNaming(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "releases")

	path := writeBinary(t, srcDir, "clang.exe", 0644)
	meta := NewMetadata("https://example.com/LLVM-19.1.2-Windows-X64.tar.xz", "LLVM", "run-1")
	packager := NewPackager(config.OutputConfig{Dir: outDir})

	if err := packager.Stage([]scan.Binary{{Name: "clang.exe", Path: path, ContentType: "PE32+ executable"}}, meta); err != nil {
		t.Fatalf("Stage() error: %v", err)
	}

	// Release directory uses the display name, the staged copy keeps the
	// original file name.
	releaseDir := filepath.Join(outDir, "clang-19.1.2-x86_64-windows")
	if _, err := os.Stat(filepath.Join(releaseDir, "clang.exe")); err != nil {
		t.Errorf("staged clang.exe missing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "metadata.json"))
	if err != nil {
		t.Fatalf("shared metadata missing: %v", err)
	}
	var shared Metadata
	if err := json.Unmarshal(data, &shared); err != nil {
		t.Fatalf("shared metadata not valid JSON: %v", err)
	}
	if len(shared.ProcessedBinaries) != 1 || shared.ProcessedBinaries[0] != "clang" {
		t.Errorf("ProcessedBinaries = %v, want [clang]", shared.ProcessedBinaries)
	}
}
