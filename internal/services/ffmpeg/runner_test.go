package ffmpeg

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesCombinedOutput(t *testing.T) {
	runner := NewRunner(nil)
	cmd := Command{Binary: "/bin/sh", Args: []string{"-c", "echo out; echo err 1>&2; exit 0"}}

	var lines []string
	result, err := runner.Run(context.Background(), cmd, t.TempDir(), 10*time.Second, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success() {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.Contains(result.Output, "out") || !strings.Contains(result.Output, "err") {
		t.Fatalf("expected merged streams, got %q", result.Output)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines forwarded, got %d: %v", len(lines), lines)
	}
}

func TestRunReportsNonZeroExit(t *testing.T) {
	runner := NewRunner(nil)
	cmd := Command{Binary: "/bin/sh", Args: []string{"-c", "echo boom; exit 3"}}

	result, err := runner.Run(context.Background(), cmd, t.TempDir(), 10*time.Second, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success() || result.TimedOut {
		t.Fatalf("expected non-zero exit outcome, got %+v", result)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestRunKillsOnDeadline(t *testing.T) {
	runner := NewRunner(nil)
	cmd := Command{Binary: "/bin/sh", Args: []string{"-c", "sleep 1"}}

	start := time.Now()
	result, err := runner.Run(context.Background(), cmd, t.TempDir(), time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("expected timeout outcome, got %+v", result)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("runner did not return promptly after deadline: %s", elapsed)
	}
}

func TestRunSplitsCarriageReturnProgress(t *testing.T) {
	runner := NewRunner(nil)
	cmd := Command{Binary: "/bin/sh", Args: []string{"-c", `printf 'frame=1\rframe=2\rframe=3\n'`}}

	var lines []string
	result, err := runner.Run(context.Background(), cmd, t.TempDir(), 10*time.Second, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success() {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(lines) != 3 {
		t.Fatalf("expected carriage returns to split into 3 lines, got %v", lines)
	}
}

func TestRunMissingBinary(t *testing.T) {
	runner := NewRunner(nil)
	if _, err := runner.Run(context.Background(), Command{}, t.TempDir(), time.Second, nil); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestCommandObserved(t *testing.T) {
	original := commandContext
	defer func() { commandContext = original }()

	var gotBinary string
	var gotArgs []string
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotBinary = name
		gotArgs = args
		return original(ctx, "/bin/sh", "-c", "exit 0")
	}

	runner := NewRunner(nil)
	_, err := runner.Run(context.Background(), Command{Binary: "ffmpeg", Args: []string{"-y"}}, t.TempDir(), time.Second, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotBinary != "ffmpeg" || len(gotArgs) != 1 || gotArgs[0] != "-y" {
		t.Fatalf("unexpected command observed: %s %v", gotBinary, gotArgs)
	}
}
