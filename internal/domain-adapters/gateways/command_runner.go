package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Timeouts for the OS utilities wrapped by the collectors
const (
	codesignTimeout = 10 * time.Second
	spctlTimeout    = 10 * time.Second
	xattrTimeout    = 5 * time.Second
	brewTimeout     = 10 * time.Second
)

// ErrCommandTimeout is set on a CommandResult when the command exceeded its deadline
var ErrCommandTimeout = errors.New("command timed out")

// CommandRunner executes an external program without a shell
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) *CommandResult
}

// CommandResult contains the result of command execution.
// Stdout and Stderr are normalized to "\n" line endings and trimmed.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error // non-nil when the command could not run to completion
}

// Combined returns stderr and stdout joined by a newline.
// codesign and spctl split their verdicts across both streams.
func (r *CommandResult) Combined() string {
	return r.Stderr + "\n" + r.Stdout
}

// execRunner runs commands through os/exec
type execRunner struct {
	defaultTimeout time.Duration
}

// NewCommandRunner creates a command runner backed by os/exec
func NewCommandRunner() CommandRunner {
	return &execRunner{
		defaultTimeout: 10 * time.Second,
	}
}

// Run executes name with args, killing it after timeout
func (r *execRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) *CommandResult {
	startTime := time.Now()
	result := &CommandResult{}

	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: Only fixed system utilities are executed, arguments are never passed through a shell
	cmd := exec.CommandContext(execCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = normalizeOutput(stdout.String())
	result.Stderr = normalizeOutput(stderr.String())

	if err != nil {
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			result.Error = fmt.Errorf("%w after %v: %s", ErrCommandTimeout, timeout, name)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Error = err
			result.ExitCode = -1
		}
	}
	return result
}

func normalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
