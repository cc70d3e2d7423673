package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"framefuse/internal/logging"
)

// commandContext is swapped in tests to observe constructed commands.
var commandContext = exec.CommandContext

// Command describes one encoder invocation as an argument vector.
type Command struct {
	Binary string
	Args   []string
}

// String renders the invocation for logging.
func (c Command) String() string {
	parts := append([]string{c.Binary}, c.Args...)
	return strings.Join(parts, " ")
}

// Result is the terminal outcome of one invocation. Exactly one of the three
// outcomes holds: success (ExitCode 0, TimedOut false), non-zero exit, or
// timeout (the process was force-killed before exiting on its own).
type Result struct {
	ExitCode int
	Output   string
	TimedOut bool
}

// Success reports whether the process exited zero within its deadline.
func (r Result) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Runner executes external encoder commands with combined output streaming.
type Runner struct {
	logger *slog.Logger
}

// NewRunner constructs a Runner. A nil logger is replaced with a no-op logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Run launches one command in dir and blocks until it terminates or the
// deadline elapses. Stdout and stderr are merged into a single stream; every
// line is forwarded to onLine (when non-nil) and retained in the result.
// When the deadline elapses first the child is killed and the result reports
// TimedOut instead of an exit code.
func (r *Runner) Run(ctx context.Context, cmd Command, dir string, deadline time.Duration, onLine func(string)) (Result, error) {
	if strings.TrimSpace(cmd.Binary) == "" {
		return Result{}, fmt.Errorf("command binary is required")
	}

	runCtx := ctx
	if deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	proc := commandContext(runCtx, cmd.Binary, cmd.Args...) //nolint:gosec
	proc.Dir = dir
	// Tie the child to this process so a daemon crash cannot orphan an encoder.
	proc.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGKILL}
	proc.WaitDelay = 5 * time.Second

	pr, pw := io.Pipe()
	proc.Stdout = pw
	proc.Stderr = pw

	if err := proc.Start(); err != nil {
		_ = pw.Close()
		return Result{}, fmt.Errorf("start %s: %w", cmd.Binary, err)
	}

	var output bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanLines)
		for scanner.Scan() {
			line := scanner.Text()
			output.WriteString(line)
			output.WriteByte('\n')
			if onLine != nil {
				onLine(line)
			}
		}
	}()

	waitErr := proc.Wait()
	_ = pw.Close()
	<-done

	result := Result{Output: output.String()}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		r.logger.Warn("encoder killed on deadline",
			logging.String("command", cmd.Binary),
			logging.Duration("deadline", deadline))
		return result, nil
	}
	if ctx.Err() != nil {
		// Parent cancellation (shutdown), not a deadline.
		return result, ctx.Err()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("wait %s: %w", cmd.Binary, waitErr)
	}
	return result, nil
}

// scanLines splits on both \n and \r so ffmpeg's carriage-return progress
// updates surface as individual lines.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, dropCR(data[:i]), nil
	}
	if atEOF {
		return len(data), dropCR(data), nil
	}
	return 0, nil, nil
}

func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}
