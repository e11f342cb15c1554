package scan

import (
	"context"

	"github.com/toolchainworks/relpack/internal/cmdrunner"
)

// Prober reports the content type of a file. Results containing "text"
// disqualify a candidate from being treated as a binary.
type Prober interface {
	ContentType(ctx context.Context, path string) (string, error)
}

// FileProber probes content types through the external file(1) command
type FileProber struct {
	runner cmdrunner.CommandRunner
}

// NewFileProber creates a prober backed by file(1)
func NewFileProber(runner cmdrunner.CommandRunner) *FileProber {
	return &FileProber{runner: runner}
}

// ContentType runs "file --brief" on path. A missing or failing file
// command is an error; the scan step treats it as fatal.
func (p *FileProber) ContentType(ctx context.Context, path string) (string, error) {
	return p.runner.RunAndTrimmedOutput(ctx, "file", "--brief", path)
}
