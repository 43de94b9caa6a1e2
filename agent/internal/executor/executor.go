// Package executor runs claimed commands in a local shell under the budget
// the backend attached to the record.
package executor

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// Exit codes for executions that never produced one of their own. 124 follows
// the timeout(1) convention, 127 is the shell's command-not-found.
const (
	ExitTimeout    = 124
	ExitStartError = 127
)

type Result struct {
	ExitCode     int
	Output       string
	ErrorMessage string
}

// Run executes command with `sh -c` and a wall-clock deadline. Output is
// stdout and stderr interleaved, the way an operator terminal would show it.
func Run(ctx context.Context, command string, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()

	res := Result{Output: string(out)}
	if err == nil {
		return res
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = ExitTimeout
		res.ErrorMessage = "command timed out after " + timeout.String()
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.ErrorMessage = err.Error()
		return res
	}
	res.ExitCode = ExitStartError
	res.ErrorMessage = err.Error()
	return res
}
