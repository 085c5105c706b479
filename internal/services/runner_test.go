package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mediacheck/internal/services"
)

func TestCommandRunnerOutcomes(t *testing.T) {
	runner := services.NewCommandRunner()
	runner.GracePeriod = 200 * time.Millisecond

	cases := []struct {
		name     string
		timeout  time.Duration
		bin      string
		args     []string
		wantKind services.OutcomeKind
		wantCode int
	}{
		{"success", time.Second * 5, "/bin/sh", []string{"-c", "exit 0"}, services.OutcomeOK, 0},
		{"failure exit", time.Second * 5, "/bin/sh", []string{"-c", "echo broken >&2; exit 3"}, services.OutcomeFailed, 3},
		{"timeout", 100 * time.Millisecond, "/bin/sh", []string{"-c", "exec sleep 10"}, services.OutcomeTimedOut, -1},
		{"missing binary", time.Second, "/nonexistent/validator-bin", nil, services.OutcomeError, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := runner.Run(context.Background(), tc.timeout, tc.bin, tc.args...)
			if outcome.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s (err=%v)", outcome.Kind, tc.wantKind, outcome.Err)
			}
			if outcome.ExitCode != tc.wantCode {
				t.Fatalf("exit code = %d, want %d", outcome.ExitCode, tc.wantCode)
			}
		})
	}
}

func TestCommandRunnerCapturesOutput(t *testing.T) {
	runner := services.NewCommandRunner()
	outcome := runner.Run(context.Background(), 5*time.Second, "/bin/sh", "-c", "echo hello; echo oops >&2; exit 2")
	if outcome.Kind != services.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Kind)
	}
	if !strings.Contains(outcome.Output, "hello") || !strings.Contains(outcome.Output, "oops") {
		t.Fatalf("expected combined output, got %q", outcome.Output)
	}
	err := outcome.Error("validator", "ffmpeg")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestCommandRunnerParentCancellation(t *testing.T) {
	runner := services.NewCommandRunner()
	runner.GracePeriod = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	outcome := runner.Run(ctx, 10*time.Second, "/bin/sh", "-c", "exec sleep 10")
	if outcome.Kind != services.OutcomeCanceled {
		t.Fatalf("expected canceled outcome, got %s", outcome.Kind)
	}
}

func TestCommandRunnerAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := services.NewCommandRunner().Run(ctx, time.Second, "/bin/sh", "-c", "exit 0")
	if outcome.Kind != services.OutcomeCanceled {
		t.Fatalf("expected canceled outcome, got %s", outcome.Kind)
	}
}

func TestTimeoutOutcomeErrorMarker(t *testing.T) {
	outcome := services.Outcome{Kind: services.OutcomeTimedOut, Duration: 3 * time.Second}
	if err := outcome.Error("remux", "mkvmerge"); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if err := (services.Outcome{Kind: services.OutcomeOK}).Error("remux", "mkvmerge"); err != nil {
		t.Fatalf("expected nil error for ok outcome, got %v", err)
	}
}
