// Package probe wraps external diagnostic commands (process lookups, log
// queries) behind a context-bound exec call, returning trimmed stdout or a
// structured "not found" outcome instead of a raw exit code. It is the
// generalized shape of a compositor-IPC wrapper: run a command, capture
// its output, decide what the output means.
package probe

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Run executes name with args and returns trimmed combined stdout. A
// nonzero exit with empty output (the common "no matching process" shape
// for pgrep and friends) is reported via ok=false rather than an error,
// since an absent process is an expected, not exceptional, outcome for
// every caller in this package's domain.
func Run(ctx context.Context, name string, args ...string) (output string, ok bool, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	trimmed := strings.TrimSpace(out.String())

	if runErr == nil {
		return trimmed, true, nil
	}

	var exitErr *exec.ExitError
	if ok := errorsAsExit(runErr, &exitErr); ok && trimmed == "" {
		return "", false, nil
	}
	return trimmed, false, runErr
}

func errorsAsExit(err error, target **exec.ExitError) bool {
	e, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = e
	return true
}

// ProcessRunning reports whether a process named name is currently
// running, via `pgrep -x name`.
func ProcessRunning(ctx context.Context, name string) (bool, error) {
	_, ok, err := Run(ctx, "pgrep", "-x", name)
	if err != nil {
		return false, err
	}
	return ok, nil
}
