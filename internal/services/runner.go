package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// OutcomeKind tags the result of a single external tool invocation.
type OutcomeKind string

const (
	OutcomeOK       OutcomeKind = "ok"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeTimedOut OutcomeKind = "timed_out"
	OutcomeError    OutcomeKind = "error"
	OutcomeCanceled OutcomeKind = "canceled"
)

// Outcome reports how an external tool run ended. Failed carries the exit code;
// Error means the tool could not be started at all; Canceled means the parent
// context was cancelled and the result must be discarded.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Output   string
	Err      error
	Duration time.Duration
}

// OK reports whether the tool exited successfully.
func (o Outcome) OK() bool { return o.Kind == OutcomeOK }

// Error converts a non-OK outcome into a marker-tagged error for logging.
func (o Outcome) Error(component, operation string) error {
	switch o.Kind {
	case OutcomeOK:
		return nil
	case OutcomeTimedOut:
		return Wrap(ErrTimeout, component, operation, "timed out after "+o.Duration.Round(time.Second).String(), nil)
	case OutcomeCanceled:
		return Wrap(ErrTransient, component, operation, "cancelled", o.Err)
	case OutcomeError:
		return Wrap(ErrExternalTool, component, operation, "could not start", o.Err)
	default:
		return Wrap(ErrExternalTool, component, operation, trimOutput(o.Output, 400), o.Err)
	}
}

// Runner executes an external tool bounded by its own timeout.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome {
	return f(ctx, timeout, name, args...)
}

const (
	defaultGracePeriod = 3 * time.Second
	defaultMaxOutput   = 64 * 1024
)

// CommandRunner runs tools as child processes in their own process group so a
// timeout terminates the whole tree.
type CommandRunner struct {
	// GracePeriod is the time allowed between SIGTERM and SIGKILL.
	GracePeriod time.Duration
	// MaxOutput caps the retained combined output (tail is kept).
	MaxOutput int
}

// NewCommandRunner returns a runner with default grace and capture limits.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{GracePeriod: defaultGracePeriod, MaxOutput: defaultMaxOutput}
}

// Run executes name with args. A zero timeout means no per-call limit.
func (r *CommandRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	grace := r.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	limit := r.MaxOutput
	if limit <= 0 {
		limit = defaultMaxOutput
	}

	if err := ctx.Err(); err != nil {
		return Outcome{Kind: OutcomeCanceled, Err: err}
	}

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	output := &tailBuffer{limit: limit}
	cmd := exec.Command(name, args...)
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = grace

	devnull, err := os.Open(os.DevNull)
	if err == nil {
		cmd.Stdin = devnull
		defer devnull.Close()
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{Kind: OutcomeError, ExitCode: -1, Err: err, Duration: time.Since(start)}
	}
	pgid := cmd.Process.Pid

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	var (
		waitErr   error
		timedOut  bool
		cancelled bool
	)
	select {
	case waitErr = <-waitDone:
	case <-runCtx.Done():
		if ctx.Err() != nil {
			cancelled = true
		} else {
			timedOut = true
		}
		terminateGroup(pgid, grace, waitDone, &waitErr)
	}

	outcome := Outcome{
		Output:   output.String(),
		Duration: time.Since(start),
		ExitCode: exitCode(cmd, waitErr),
	}
	switch {
	case cancelled:
		outcome.Kind = OutcomeCanceled
		outcome.Err = ctx.Err()
	case timedOut:
		outcome.Kind = OutcomeTimedOut
		outcome.Err = runCtx.Err()
	case waitErr == nil:
		outcome.Kind = OutcomeOK
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			outcome.Kind = OutcomeFailed
		} else {
			outcome.Kind = OutcomeError
		}
		outcome.Err = waitErr
	}
	return outcome
}

func terminateGroup(pgid int, grace time.Duration, waitDone <-chan error, waitErr *error) {
	_ = unix.Kill(-pgid, unix.SIGTERM)
	select {
	case *waitErr = <-waitDone:
		return
	case <-time.After(grace):
	}
	_ = unix.Kill(-pgid, unix.SIGKILL)
	*waitErr = <-waitDone
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}

func trimOutput(output string, limit int) string {
	output = strings.TrimSpace(output)
	if len(output) <= limit {
		return output
	}
	return "..." + output[len(output)-limit:]
}
