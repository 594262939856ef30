package keepass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// runner executes keepassxc-cli with a hard wall-clock timeout. On expiry
// the process is killed and ErrTimeout surfaces instead of hanging the
// caller.
type runner struct {
	cliPath string
	timeout time.Duration
}

func newRunner(cliPath string, timeout time.Duration) *runner {
	return &runner{cliPath: cliPath, timeout: timeout}
}

type execResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// run executes cmd. When password is non-empty it becomes the first stdin
// line, followed by any additional stdin lines the command carries. The
// password never appears in argv or in error text.
func (r *runner) run(ctx context.Context, cmd command, password string, timeout time.Duration) (execResult, error) {
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proc := exec.CommandContext(ctx, r.cliPath, cmd.args...)
	// CommandContext sends SIGKILL when the context expires.

	var stdin strings.Builder
	if password != "" {
		stdin.WriteString(password)
		stdin.WriteString("\n")
	}
	for _, line := range cmd.stdin {
		stdin.WriteString(line)
		stdin.WriteString("\n")
	}
	if stdin.Len() > 0 {
		proc.Stdin = strings.NewReader(stdin.String())
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return execResult{}, fmt.Errorf("%w: after %s", ErrTimeout, timeout)
	}

	result := execResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.exitCode = exitErr.ExitCode()
			return result, nil // non-zero exit is classified by the parser
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return execResult{}, fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
		if errors.Is(err, io.ErrClosedPipe) {
			return execResult{}, fmt.Errorf("%w: stdin closed early", ErrCommand)
		}
		return execResult{}, fmt.Errorf("%w: %v", ErrCommand, err)
	}
	return result, nil
}
