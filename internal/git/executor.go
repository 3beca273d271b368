package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor runs git with args in dir and returns its stdout.
type CommandExecutor interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecExecutor is the default CommandExecutor, backed by os/exec.
type ExecExecutor struct {
	// Binary is the git executable. Empty means "git" on PATH.
	Binary string
}

// NewExecExecutor creates a new ExecExecutor.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Run implements CommandExecutor.
func (e *ExecExecutor) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := e.Binary
	if bin == "" {
		bin = "git"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &CommandError{
			Args:   args,
			Err:    err,
			Output: strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Err    error
	Output string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Output != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Output)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code, or -1 if the process did not exit normally.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if stderrors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// exitCode extracts the git exit code from err, or -1.
func exitCode(err error) int {
	var cmdErr *CommandError
	if stderrors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	return -1
}
