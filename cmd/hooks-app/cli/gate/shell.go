package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// TimeoutExitCode is reported for a command killed by its timeout, matching
// coreutils timeout(1).
const TimeoutExitCode = 124

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
// after the shell itself has been killed.
const waitDelay = 2 * time.Second

// ShellResult is the outcome of a command gate.
type ShellResult struct {
	ExitCode int
	// Output is stdout followed by stderr.
	Output string
}

// CommandRunner builds the *exec.Cmd for a shell invocation. Tests replace
// it to observe arguments.
type CommandRunner func(ctx context.Context, name string, args ...string) *exec.Cmd

// RunShell runs command with sh -c in dir. Non-zero exits and timeouts are
// reported in the result, not as errors; the gate itself decides what a
// failure means. Only cancellation of ctx by the caller is returned as an
// error.
func RunShell(ctx context.Context, runner CommandRunner, command, dir string, timeout time.Duration) (ShellResult, error) {
	if runner == nil {
		runner = exec.CommandContext
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := runner(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := stdout.String() + stderr.String()
	if err == nil {
		return ShellResult{ExitCode: 0, Output: output}, nil
	}

	// Parent cancellation (signal) aborts the dispatch
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ShellResult{}, fmt.Errorf("command gate interrupted: %w", ctxErr)
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return ShellResult{
			ExitCode: TimeoutExitCode,
			Output:   fmt.Sprintf("Command timed out after %dms", timeout.Milliseconds()),
		}, nil
	}

	// The shell exited but a background child kept the pipes open
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		return ShellResult{ExitCode: cmd.ProcessState.ExitCode(), Output: output}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return ShellResult{ExitCode: exitErr.ExitCode(), Output: output}, nil
	}

	// Could not start (missing cwd, no shell) or killed by a signal
	if output != "" {
		output += "\n"
	}
	return ShellResult{ExitCode: 1, Output: output + err.Error()}, nil
}
