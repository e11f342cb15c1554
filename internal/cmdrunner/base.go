package cmdrunner

import (
	"context"

	"github.com/toolchainworks/relpack/pkg/logger"
)

// CommandRunner abstracts external process execution so callers can be
// tested with a stub runner.
type CommandRunner interface {
	Run(ctx context.Context, cmd string, args ...string) error
	RunWithOutput(ctx context.Context, cmd string, args ...string) ([]byte, error)
	RunAndTrimmedOutput(ctx context.Context, cmd string, args ...string) (string, error)
	LookPath(cmd string) (string, error)
}

type CommandsRunner struct {
	logger *logger.Logger
}

func NewCommandsRunner() *CommandsRunner {
	return &CommandsRunner{logger: logger.NewLogger("command_runner")}
}
