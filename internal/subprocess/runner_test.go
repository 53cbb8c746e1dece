package subprocess

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sentryd/sentryd/internal/agent"
)

func waitForResult(t *testing.T, r *Runner, command string, timeout float64) agent.SubprocessResult {
	t.Helper()
	var (
		mu     sync.Mutex
		done   bool
		result agent.SubprocessResult
	)

	r.Start(context.Background(), command, timeout, func(res agent.SubprocessResult) {
		mu.Lock()
		result, done = res, true
		mu.Unlock()
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		if done {
			mu.Unlock()
			return result
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("subprocess did not complete in time")
	return agent.SubprocessResult{}
}

func TestRunCapturesStdoutAndStderr(t *testing.T) {
	res := waitForResult(t, New(), "echo out; echo err 1>&2", 0)

	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Fatalf("expected combined output to contain both streams, got %q", res.Output)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestRunReportsNonZeroExitCode(t *testing.T) {
	res := waitForResult(t, New(), "exit 7", 0)

	if res.ExitCode != 7 {
		t.Fatalf("expected exit code 7, got %d", res.ExitCode)
	}
}

func TestRunReportsTimeoutExitCode(t *testing.T) {
	res := waitForResult(t, New(), "sleep 5", 0.05)

	if res.ExitCode != timeoutExitCode {
		t.Fatalf("expected timeout exit code %d, got %d", timeoutExitCode, res.ExitCode)
	}
}
