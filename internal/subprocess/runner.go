// Package subprocess runs a check's command line in a child process,
// bounding it by an optional timeout and capturing its combined output.
package subprocess

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/sentryd/sentryd/internal/agent"
)

// timeoutExitCode is reported in place of a real exit code when the
// command is killed for running past its timeout, following the
// convention of the coreutils timeout(1) command.
const timeoutExitCode = 124

// Runner starts check commands through the shell and reports their
// combined stdout/stderr and exit code to a completion callback. It
// satisfies agent.SubprocessRunner.
type Runner struct {
	shell string
	args  []string
}

// New returns a Runner that executes commands via "sh -c". The shell and
// its arguments are unexported fields and cannot be set from outside this
// package.
func New() *Runner {
	return &Runner{shell: "sh", args: []string{"-c"}}
}

var _ agent.SubprocessRunner = (*Runner)(nil)

// Start launches command in a child process and invokes onComplete with
// its result once it exits or is killed for exceeding timeout seconds.
// Start returns immediately; the command runs and completes on its own
// goroutine.
func (r *Runner) Start(ctx context.Context, command string, timeout float64, onComplete func(agent.SubprocessResult)) {
	go r.run(ctx, command, timeout, onComplete)
}

func (r *Runner) run(ctx context.Context, command string, timeout float64, onComplete func(agent.SubprocessResult)) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.shell, append(append([]string{}, r.args...), command)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	result := agent.SubprocessResult{Output: out.String()}
	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.ExitCode = timeoutExitCode
	case err == nil:
		result.ExitCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	onComplete(result)
}
