package release

import (
	"context"
	"fmt"

	"github.com/toolchainworks/relpack/internal/cmdrunner"
	"github.com/toolchainworks/relpack/internal/operations/scan"
	"github.com/toolchainworks/relpack/pkg/logger"
)

// Publisher creates GitHub releases for discovered binaries by shelling
// out to the gh CLI. Without a credential it degrades to a dry-run report
// instead of failing the run.
type Publisher struct {
	runner cmdrunner.CommandRunner
	repo   string
	token  string
	logger *logger.Logger
}

// NewPublisher creates a publisher. token is the GITHUB_TOKEN value
// threaded in by the caller; empty means dry-run.
func NewPublisher(runner cmdrunner.CommandRunner, repo, token string) *Publisher {
	return &Publisher{
		runner: runner,
		repo:   repo,
		token:  token,
		logger: logger.NewLogger("publisher"),
	}
}

// Publish creates one release per binary, attaching the binary file.
// A failing gh invocation aborts the run.
func (p *Publisher) Publish(ctx context.Context, binaries []scan.Binary, meta *Metadata) error {
	if p.token == "" {
		p.logger.Warn("GITHUB_TOKEN not set, reporting what would be published")
		for _, binary := range binaries {
			p.logger.WithFields(logger.Fields{
				"release": meta.BinaryID(binary.DisplayName()),
				"binary":  binary.Path,
			}).Info("Dry run: would create release")
		}
		return nil
	}

	if _, err := p.runner.LookPath("gh"); err != nil {
		return err
	}

	for _, binary := range binaries {
		tag := meta.BinaryID(binary.DisplayName())

		args := []string{
			"release", "create", tag, binary.Path,
			"--title", tag,
			"--notes", fmt.Sprintf("Extracted from %s", meta.SourceURL),
		}
		if p.repo != "" {
			args = append(args, "--repo", p.repo)
		}

		p.logger.WithFields(logger.Fields{"release": tag}).Info("Creating release")
		if err := p.runner.Run(ctx, "gh", args...); err != nil {
			return fmt.Errorf("failed to create release %s: %w", tag, err)
		}
	}

	p.logger.WithFields(logger.Fields{"count": len(binaries)}).Info("Publishing complete")
	return nil
}
