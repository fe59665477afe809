package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary. Adapters accept one so tests can
// substitute a fake that records arguments and writes expected outputs.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// RunCommand executes name with args, folding combined output into the error.
// A missing binary is reported as ErrNotFound; any other failure as ErrExternalTool.
func RunCommand(ctx context.Context, name string, args ...string) error {
	return runCommand(ctx, nil, name, args...)
}

// RunCommandEnv is RunCommand with extra environment variables appended.
func RunCommandEnv(ctx context.Context, env []string, name string, args ...string) error {
	return runCommand(ctx, env, name, args...)
}

func runCommand(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return Wrap(ErrNotFound, "", name, "binary not found in PATH", err)
	}
	if ctx.Err() != nil {
		return Wrap(ErrTimeout, "", name, "command interrupted", ctx.Err())
	}
	return Wrap(ErrExternalTool, "", name, fmt.Sprintf("command failed: %s", tail(string(output), 400)), err)
}

func tail(output string, limit int) string {
	output = strings.TrimSpace(output)
	if len(output) <= limit {
		return output
	}
	return "..." + output[len(output)-limit:]
}
