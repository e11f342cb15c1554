package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/toolchainworks/relpack/internal/config"
)

func newTestStore(t *testing.T, enabled bool) *Store {
	t.Helper()
	base := t.TempDir()
	return NewStore(config.CacheConfig{
		Dir:        filepath.Join(base, "archives"),
		ExtractDir: filepath.Join(base, "extracted"),
		Enabled:    enabled,
	})
}

func TestArchivePath(t *testing.T) {
	store := newTestStore(t, true)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "llvm_tarball",
			url:  "https://example.com/releases/LLVM-19.1.2-Linux-X64.tar.xz",
			want: "LLVM-19.1.2-Linux-X64.tar.xz",
		},
		{
			name: "query_ignored",
			url:  "https://example.com/files/archive.tar.gz?token=abc",
			want: "archive.tar.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ArchivePath(tt.url)
			if err != nil {
				t.Fatalf("ArchivePath() error = %v", err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("ArchivePath() = %v, want basename %v", got, tt.want)
			}
			if filepath.Dir(got) != store.CacheDir() {
				t.Errorf("ArchivePath() not under cache dir: %v", got)
			}
		})
	}
}

func TestArchivePathNoFilename(t *testing.T) {
	store := newTestStore(t, true)

	if _, err := store.ArchivePath("https://example.com/"); err == nil {
		t.Error("expected error for URL without filename")
	}
}

func TestExtractPath(t *testing.T) {
	store := newTestStore(t, true)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "tar_xz_strips_both_suffixes",
			url:  "https://example.com/LLVM-19.1.2-Linux-X64.tar.xz",
			want: "LLVM-19.1.2-Linux-X64",
		},
		{
			name: "tar_gz",
			url:  "https://example.com/archive.tar.gz",
			want: "archive",
		},
		{
			name: "tgz_single_suffix",
			url:  "https://example.com/archive.tgz",
			want: "archive",
		},
		{
			name: "bare_tar",
			url:  "https://example.com/archive.tar",
			want: "archive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ExtractPath(tt.url)
			if err != nil {
				t.Fatalf("ExtractPath() error = %v", err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("ExtractPath() = %v, want basename %v", got, tt.want)
			}
			if filepath.Dir(got) != store.ExtractDir() {
				t.Errorf("ExtractPath() not under extract dir: %v", got)
			}
		})
	}
}

func TestPathsAreDeterministic(t *testing.T) {
	store := newTestStore(t, true)
	url := "https://example.com/LLVM-19.1.2-Linux-X64.tar.xz"

	first, err := store.ArchivePath(url)
	if err != nil {
		t.Fatalf("ArchivePath() error = %v", err)
	}
	second, err := store.ArchivePath(url)
	if err != nil {
		t.Fatalf("ArchivePath() error = %v", err)
	}
	if first != second {
		t.Errorf("ArchivePath() not deterministic: %v vs %v", first, second)
	}
}

func TestCheckSlotCollision(t *testing.T) {
	store := newTestStore(t, true)

	slot, err := store.ArchivePath("https://a.example.com/archive.tar.gz")
	if err != nil {
		t.Fatalf("ArchivePath() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(slot), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := store.RecordSlot(slot, "https://a.example.com/archive.tar.gz"); err != nil {
		t.Fatalf("RecordSlot() error = %v", err)
	}

	// Same URL is fine
	if err := store.CheckSlot(slot, "https://a.example.com/archive.tar.gz"); err != nil {
		t.Errorf("CheckSlot() same URL: unexpected error %v", err)
	}

	// Different URL sharing the filename is a flagged collision
	if err := store.CheckSlot(slot, "https://b.example.com/archive.tar.gz"); err == nil {
		t.Error("CheckSlot() expected collision error for different URL")
	}
}

func TestCheckSlotWithoutRecord(t *testing.T) {
	store := newTestStore(t, true)

	slot, err := store.ArchivePath("https://example.com/archive.tar.gz")
	if err != nil {
		t.Fatalf("ArchivePath() error = %v", err)
	}

	// A slot with no source record is accepted
	if err := store.CheckSlot(slot, "https://example.com/archive.tar.gz"); err != nil {
		t.Errorf("CheckSlot() without record: unexpected error %v", err)
	}
}

func TestClean(t *testing.T) {
	store := newTestStore(t, true)

	for _, dir := range []string{store.CacheDir(), store.ExtractDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "stale"), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := store.Clean(); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	for _, dir := range []string{store.CacheDir(), store.ExtractDir()} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("directory %s still exists after Clean()", dir)
		}
	}
}
