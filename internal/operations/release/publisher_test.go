package release

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/toolchainworks/relpack/internal/operations/scan"
)

// stubRunner records invocations instead of executing them.
type stubRunner struct {
	calls    [][]string
	runErr   error
	lookErr  error
	lookPath string
}

func (s *stubRunner) Run(ctx context.Context, cmd string, args ...string) error {
	s.calls = append(s.calls, append([]string{cmd}, args...))
	return s.runErr
}

func (s *stubRunner) RunWithOutput(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, append([]string{cmd}, args...))
	return nil, s.runErr
}

func (s *stubRunner) RunAndTrimmedOutput(ctx context.Context, cmd string, args ...string) (string, error) {
	s.calls = append(s.calls, append([]string{cmd}, args...))
	return "", s.runErr
}

func (s *stubRunner) LookPath(cmd string) (string, error) {
	if s.lookErr != nil {
		return "", s.lookErr
	}
	if s.lookPath != "" {
		return s.lookPath, nil
	}
	return "/usr/bin/" + cmd, nil
}

func TestPublishWithoutTokenIsDryRun(t *testing.T) {
	runner := &stubRunner{}
	publisher := NewPublisher(runner, "", "")

	meta := NewMetadata("https://example.com/LLVM-19.1.2-Linux-X64.tar.xz", "LLVM", "run-1")
	binaries := []scan.Binary{{Name: "clang", Path: "/tmp/clang", ContentType: "ELF"}}

	if err := publisher.Publish(context.Background(), binaries, meta); err != nil {
		t.Fatalf("dry-run publish returned error: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("dry run executed commands: %v", runner.calls)
	}
}

func TestPublishInvokesGhPerBinary(t *testing.T) {
	runner := &stubRunner{}
	publisher := NewPublisher(runner, "example/releases", "tok")

	meta := NewMetadata("https://example.com/LLVM-19.1.2-Linux-X64.tar.xz", "LLVM", "run-1")
	binaries := []scan.Binary{
		{Name: "clang", Path: "/tmp/clang", ContentType: "ELF"},
		{Name: "lld", Path: "/tmp/lld", ContentType: "ELF"},
	}

	if err := publisher.Publish(context.Background(), binaries, meta); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("gh invoked %d times, want 2", len(runner.calls))
	}

	first := strings.Join(runner.calls[0], " ")
	for _, part := range []string{"gh release create", "clang-19.1.2-x86_64-linux", "/tmp/clang", "--repo example/releases"} {
		if !strings.Contains(first, part) {
			t.Errorf("first invocation %q missing %q", first, part)
		}
	}
}

func TestPublishFailsWithoutGh(t *testing.T) {
	runner := &stubRunner{lookErr: errors.New("gh not found in PATH")}
	publisher := NewPublisher(runner, "", "tok")

	meta := NewMetadata("https://example.com/LLVM-19.1.2-Linux-X64.tar.xz", "LLVM", "run-1")
	err := publisher.Publish(context.Background(), []scan.Binary{{Name: "clang", Path: "/tmp/clang"}}, meta)
	if err == nil {
		t.Fatal("expected error when gh is not installed")
	}
	if len(runner.calls) != 0 {
		t.Errorf("commands were executed despite missing gh: %v", runner.calls)
	}
}

func TestPublishAbortsOnCommandFailure(t *testing.T) {
	runner := &stubRunner{runErr: errors.New("release already exists")}
	publisher := NewPublisher(runner, "", "tok")

	meta := NewMetadata("https://example.com/LLVM-19.1.2-Linux-X64.tar.xz", "LLVM", "run-1")
	binaries := []scan.Binary{
		{Name: "clang", Path: "/tmp/clang"},
		{Name: "lld", Path: "/tmp/lld"},
	}

	err := publisher.Publish(context.Background(), binaries, meta)
	if err == nil {
		t.Fatal("expected error from failing gh invocation")
	}
	if len(runner.calls) != 1 {
		t.Errorf("publishing continued after failure: %d calls", len(runner.calls))
	}
}
