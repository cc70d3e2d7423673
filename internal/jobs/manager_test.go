package jobs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"framefuse/internal/config"
	"framefuse/internal/jobs"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
	"framefuse/internal/services"
	"framefuse/internal/services/ffmpeg"
	"framefuse/internal/testsupport"
)

// stubRunner plays the external encoder. By default every invocation
// succeeds, emits a few progress lines, and creates the file named by the
// final argument.
type stubRunner struct {
	mu        sync.Mutex
	calls     []ffmpeg.Command
	deadlines []time.Duration
	results   []ffmpeg.Result
	lines     []string
}

func (s *stubRunner) Run(_ context.Context, cmd ffmpeg.Command, dir string, deadline time.Duration, onLine func(string)) (ffmpeg.Result, error) {
	s.mu.Lock()
	call := len(s.calls)
	s.calls = append(s.calls, cmd)
	s.deadlines = append(s.deadlines, deadline)
	s.mu.Unlock()

	for _, line := range s.lines {
		if onLine != nil {
			onLine(line)
		}
	}

	result := ffmpeg.Result{}
	if call < len(s.results) {
		result = s.results[call]
	}
	if result.Success() {
		output := filepath.Join(dir, cmd.Args[len(cmd.Args)-1])
		if err := os.WriteFile(output, []byte("encoded"), 0o644); err != nil {
			return ffmpeg.Result{}, err
		}
	}
	return result, nil
}

func (s *stubRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubRunner) call(i int) ffmpeg.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

type stubScheduler struct {
	mu    sync.Mutex
	jobs  []string
	delay time.Duration
}

func (s *stubScheduler) Schedule(jobID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, jobID)
	s.delay = delay
}

func newManager(t *testing.T, runner jobs.CommandRunner, opts ...testsupport.ConfigOption) (*jobs.Manager, *config.Config, *stubScheduler) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cleanup := &stubScheduler{}
	manager := jobs.NewManager(cfg, store, runner, cleanup, logging.NewNop())
	t.Cleanup(manager.Close)
	return manager, cfg, cleanup
}

func waitTerminal(t *testing.T, manager *jobs.Manager, id string) *queue.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := manager.GetStatus(context.Background(), id)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestRegisterJobFiltersAndSorts(t *testing.T) {
	manager, _, _ := newManager(t, &stubRunner{})

	blobs := []jobs.FrameBlob{
		testsupport.FrameBlob("b.png"),
		testsupport.FrameBlob("notes.txt"),
		testsupport.FrameBlob("a.png"),
		testsupport.FrameBlob("../escape.png"),
	}
	job, err := manager.RegisterJob(context.Background(), blobs)
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}

	if job.Status != queue.StatusUploaded {
		t.Fatalf("status = %s, want uploaded", job.Status)
	}
	var names []string
	for _, frame := range job.Frames {
		names = append(names, frame.Original)
	}
	want := []string{"a.png", "b.png", "escape.png"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("frames = %v, want %v", names, want)
	}

	for _, name := range want {
		if _, err := os.Stat(filepath.Join(job.WorkDir, name)); err != nil {
			t.Errorf("frame %s not written: %v", name, err)
		}
	}
}

func TestRegisterJobRejectsEmptyUpload(t *testing.T) {
	manager, _, _ := newManager(t, &stubRunner{})

	_, err := manager.RegisterJob(context.Background(), testsupport.FrameBlobs("readme.md", "clip.mp4"))
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegisterJobEnforcesFrameLimit(t *testing.T) {
	manager, _, _ := newManager(t, &stubRunner{}, testsupport.WithMaxFrameCount(2))

	_, err := manager.RegisterJob(context.Background(), testsupport.FrameBlobs("a.png", "b.png", "c.png"))
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStartJobValidation(t *testing.T) {
	manager, _, _ := newManager(t, &stubRunner{})
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}

	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{Codec: "h264"}); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("unknown codec: expected ErrInvalidInput, got %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{Quality: "ludicrous"}); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("unknown quality: expected ErrInvalidInput, got %v", err)
	}
	if _, err := manager.StartJob(ctx, "no-such-job", jobs.StartOptions{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing job: expected ErrNotFound, got %v", err)
	}
}

func TestStartJobRejectsDoubleStart(t *testing.T) {
	runner := &stubRunner{}
	manager, _, _ := newManager(t, runner)
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{}); err != nil {
		t.Fatalf("first StartJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{}); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("second StartJob: expected ErrInvalidState, got %v", err)
	}
	waitTerminal(t, manager, job.ID)
}

func TestPipelineCompletesAndReportsProgress(t *testing.T) {
	runner := &stubRunner{lines: []string{"frame=    1 fps=24", "frame=    2 fps=24"}}
	manager, _, _ := newManager(t, runner)
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png", "b.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{Codec: "vp9", FrameRate: 999}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	done := waitTerminal(t, manager, job.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.ErrorMessage)
	}
	if done.Progress != 100 {
		t.Fatalf("progress = %d, want 100", done.Progress)
	}
	if done.OutputSize <= 0 {
		t.Fatalf("output size = %d, want > 0", done.OutputSize)
	}
	if !strings.HasSuffix(done.OutputPath, "output.webm") {
		t.Fatalf("output path = %s", done.OutputPath)
	}

	// Frames were renamed to a contiguous numbered sequence.
	for i, frame := range done.Frames {
		if frame.Sequential == "" {
			t.Fatalf("frame %d missing sequential name", i)
		}
		if _, err := os.Stat(filepath.Join(done.WorkDir, frame.Sequential)); err != nil {
			t.Errorf("renamed frame %s missing: %v", frame.Sequential, err)
		}
	}

	// The out-of-range frame rate was clamped to the configured maximum.
	args := strings.Join(runner.call(0).Args, " ")
	if !strings.Contains(args, "-framerate 60") {
		t.Fatalf("expected clamped frame rate in args: %s", args)
	}
}

func TestPipelineRecordsEncoderFailure(t *testing.T) {
	runner := &stubRunner{
		results: []ffmpeg.Result{{ExitCode: 1, Output: "frame= 1\nConversion failed!\n"}},
	}
	manager, _, _ := newManager(t, runner)
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	done := waitTerminal(t, manager, job.ID)
	if done.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "exit code 1") || !strings.Contains(done.ErrorMessage, "Conversion failed!") {
		t.Fatalf("error message = %q", done.ErrorMessage)
	}
	if strings.Contains(done.ErrorMessage, "deadline") {
		t.Fatalf("exit failure misreported as timeout: %q", done.ErrorMessage)
	}
}

func TestPipelineRecordsTimeout(t *testing.T) {
	runner := &stubRunner{results: []ffmpeg.Result{{TimedOut: true}}}
	manager, _, _ := newManager(t, runner, testsupport.WithEncodeDeadline(30))
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	done := waitTerminal(t, manager, job.ID)
	if done.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "deadline") {
		t.Fatalf("error message = %q", done.ErrorMessage)
	}
	if strings.Contains(done.ErrorMessage, "exit code") {
		t.Fatalf("timeout misreported as exit failure: %q", done.ErrorMessage)
	}
}

func TestGIFPipelineRunsTwoPhases(t *testing.T) {
	runner := &stubRunner{}
	manager, _, _ := newManager(t, runner, testsupport.WithEncodeDeadline(10))
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png", "b.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{Codec: "gif", FrameRate: 12}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	done := waitTerminal(t, manager, job.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.ErrorMessage)
	}
	if runner.callCount() != 2 {
		t.Fatalf("expected two encoder invocations, got %d", runner.callCount())
	}

	// Palette generation runs on half the encode budget.
	runner.mu.Lock()
	paletteDeadline, encodeDeadline := runner.deadlines[0], runner.deadlines[1]
	runner.mu.Unlock()
	if paletteDeadline != 5*time.Second || encodeDeadline != 10*time.Second {
		t.Fatalf("deadlines = %s, %s; want 5s, 10s", paletteDeadline, encodeDeadline)
	}

	if !strings.HasSuffix(done.OutputPath, "output.gif") {
		t.Fatalf("output path = %s", done.OutputPath)
	}
}

func TestGIFPaletteFailureIsTerminal(t *testing.T) {
	runner := &stubRunner{
		results: []ffmpeg.Result{{ExitCode: 1, Output: "palettegen: invalid input"}},
	}
	manager, _, _ := newManager(t, runner)
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{Codec: "gif"}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	done := waitTerminal(t, manager, job.ID)
	if done.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "palette generation") {
		t.Fatalf("error message = %q", done.ErrorMessage)
	}
	if runner.callCount() != 1 {
		t.Fatalf("encode phase must not run after palette failure, got %d calls", runner.callCount())
	}
}

func TestPipelineSkipsMissingFrames(t *testing.T) {
	runner := &stubRunner{}
	manager, _, _ := newManager(t, runner)
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png", "b.png", "c.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := os.Remove(filepath.Join(job.WorkDir, "b.png")); err != nil {
		t.Fatalf("remove frame: %v", err)
	}

	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	done := waitTerminal(t, manager, job.ID)
	if done.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.ErrorMessage)
	}
	if done.FrameCount() != 2 {
		t.Fatalf("frame count = %d, want 2", done.FrameCount())
	}
	if done.Frames[0].Sequential != "frame_0001.png" || done.Frames[1].Sequential != "frame_0002.png" {
		t.Fatalf("sequence has gaps: %+v", done.Frames)
	}
}

func TestGetArtifact(t *testing.T) {
	runner := &stubRunner{}
	manager, _, cleanup := newManager(t, runner)
	ctx := context.Background()

	job, err := manager.RegisterJob(ctx, testsupport.FrameBlobs("a.png"))
	if err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}

	// Not completed yet.
	if _, err := manager.GetArtifact(ctx, job.ID); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if _, err := manager.GetArtifact(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := manager.StartJob(ctx, job.ID, jobs.StartOptions{}); err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	waitTerminal(t, manager, job.ID)

	artifact, err := manager.GetArtifact(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if artifact.MediaType != "video/webm" {
		t.Errorf("media type = %s", artifact.MediaType)
	}
	wantName := "transparent_video_" + job.ID[:8] + ".webm"
	if artifact.FileName != wantName {
		t.Errorf("file name = %s, want %s", artifact.FileName, wantName)
	}
	if artifact.Size <= 0 {
		t.Errorf("size = %d", artifact.Size)
	}

	// A successful download queues the job for cleanup.
	cleanup.mu.Lock()
	scheduled := len(cleanup.jobs)
	cleanup.mu.Unlock()
	if scheduled != 1 {
		t.Fatalf("expected one scheduled cleanup, got %d", scheduled)
	}
}
