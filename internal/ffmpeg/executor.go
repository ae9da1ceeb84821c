package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stdout string
	Stderr string
	// ExitCode is -1 when the process did not start or was killed.
	ExitCode int
	Err      error
}

// Failed reports whether the invocation did not exit cleanly.
func (r ExecResult) Failed() bool { return r.Err != nil }

// Output returns stdout immediately followed by stderr.
func (r ExecResult) Output() string { return r.Stdout + r.Stderr }

// Execute runs bin with args and waits for it. Both output streams are
// captured in full and nothing is echoed to the terminal.
func Execute(ctx context.Context, bin string, args []string) ExecResult {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := ExecResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: -1,
		Err:      err,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && ctx.Err() != nil {
		res.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return res
}

// ExitStatus describes how the process ended, for logs.
func (r ExecResult) ExitStatus() string {
	var exitErr *exec.ExitError
	switch {
	case r.Err == nil:
		return "exit status 0"
	case errors.As(r.Err, &exitErr):
		return exitErr.ProcessState.String()
	default:
		return r.Err.Error()
	}
}

// Version runs "bin -version" and returns the first line of its output.
func Version(ctx context.Context, bin string) (string, error) {
	res := Execute(ctx, bin, []string{"-version"})
	if res.Failed() {
		return "", fmt.Errorf("%s -version: %w", bin, res.Err)
	}
	sc := bufio.NewScanner(strings.NewReader(res.Stdout))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", fmt.Errorf("%s -version: empty output", bin)
}
