package cmdrunner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func (r *CommandsRunner) Run(ctx context.Context, cmd string, args ...string) error {
	c := exec.CommandContext(ctx, cmd, args...)
	output, err := c.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Errorf("command failed: %s %v\n%s", cmd, args, string(output))
		return fmt.Errorf("command error: %w\n%s", err, string(output))
	}
	return nil
}

func (r *CommandsRunner) RunWithOutput(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	output, err := c.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Errorf("command failed: %s %v\n%s", cmd, args, string(output))
		return nil, fmt.Errorf("command error: %w\n%s", err, string(output))
	}
	return output, nil
}

func (r *CommandsRunner) RunAndTrimmedOutput(ctx context.Context, cmd string, args ...string) (string, error) {
	out, err := r.RunWithOutput(ctx, cmd, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// LookPath reports where cmd resolves on PATH, so callers can fail early
// with a clear message when an external collaborator is missing.
func (r *CommandsRunner) LookPath(cmd string) (string, error) {
	path, err := exec.LookPath(cmd)
	if err != nil {
		return "", fmt.Errorf("required command %q not found on PATH: %w", cmd, err)
	}
	return path, nil
}
