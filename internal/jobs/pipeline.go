package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"framefuse/internal/encoder"
	"framefuse/internal/fileutil"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
	"framefuse/internal/services"
)

// framePattern is the numbered sequence ffmpeg consumes. Frames are renamed
// to this pattern in registration order before the encode starts.
const framePattern = "frame_%04d.png"

// runPipeline drives one claimed job to a terminal state: rename frames to
// the numbered sequence, run the planned ffmpeg command(s), verify the
// artifact, and record the outcome. Terminal writes use a background context
// so a daemon shutdown cannot leave a job stuck in processing.
func (m *Manager) runPipeline(ctx context.Context, id string, codec encoder.Codec, quality encoder.Quality, frameRate int) {
	logger := logging.WithJob(m.logger, id)
	start := m.now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", logging.Any("panic", r))
			m.failJob(id, fmt.Errorf("internal error: %v", r), logger)
		}
	}()

	job, err := m.store.GetByID(ctx, id)
	if err != nil || job == nil {
		logger.Error("load claimed job", logging.Error(err))
		m.failJob(id, services.Wrap(services.ErrStorageFailure, "pipeline", "load job", "job vanished before encoding", err), logger)
		return
	}

	total, err := m.renameFrames(job, logger)
	if err != nil {
		m.failJob(id, err, logger)
		return
	}

	plan := encoder.Build(encoder.Request{
		Binary:            m.cfg.FFmpegBinary(),
		Codec:             codec,
		Quality:           quality,
		FrameRate:         frameRate,
		FramePattern:      framePattern,
		OutputName:        "output." + codec.Extension(),
		PaletteScaleWidth: m.cfg.Encoder.PaletteScaleWidth,
	})
	deadline := m.cfg.EncodeDeadline()

	for i, cmd := range plan.Commands {
		final := i == len(plan.Commands)-1
		budget := deadline
		var onLine func(string)
		if final {
			onLine = func(line string) {
				if frame, ok := encoder.ParseFrame(line); ok {
					_ = m.store.UpdateProgress(context.Background(), id, encoder.Percent(frame, total))
				}
			}
		} else {
			// Palette generation runs on half the budget so a slow first
			// phase cannot starve the actual encode.
			budget = deadline / 2
		}

		result, runErr := m.runner.Run(ctx, cmd, job.WorkDir, budget, onLine)
		if runErr != nil {
			logger.Warn("encode interrupted", logging.Error(runErr))
			m.failJob(id, services.Wrap(services.ErrEncodingFailure, phaseLabel(final), "", "interrupted by shutdown", runErr), logger)
			return
		}
		if result.TimedOut {
			m.failJob(id, services.Wrap(services.ErrTimeout, phaseLabel(final), "",
				fmt.Sprintf("exceeded the %s deadline", budget), nil), logger)
			return
		}
		if !result.Success() {
			m.failJob(id, services.Wrap(services.ErrEncodingFailure, phaseLabel(final), "",
				fmt.Sprintf("exit code %d: %s", result.ExitCode, lastLine(result.Output)), nil), logger)
			return
		}
	}

	outputPath := filepath.Join(job.WorkDir, plan.OutputName)
	size, err := fileutil.FileSize(outputPath)
	if err != nil {
		m.failJob(id, services.Wrap(services.ErrStorageFailure, "finalize", "",
			"encoder exited cleanly but produced no output", err), logger)
		return
	}

	elapsed := m.now().Sub(start).Milliseconds()
	if err := m.store.MarkCompleted(context.Background(), id, outputPath, size, elapsed); err != nil {
		logger.Error("record completion", logging.Error(err))
		return
	}
	logger.Info("encode completed",
		logging.String("codec", string(codec)),
		logging.Int64("output_bytes", size),
		logging.Int64("elapsed_ms", elapsed))
}

// renameFrames moves the uploaded frames onto the numbered pattern in sorted
// order. A frame that disappeared between upload and start is skipped with a
// warning; numbering stays contiguous so the input sequence has no gaps.
func (m *Manager) renameFrames(job *queue.Job, logger *slog.Logger) (int, error) {
	renamed := make([]queue.Frame, 0, len(job.Frames))
	next := 1
	for _, frame := range job.Frames {
		sequential := fmt.Sprintf(framePattern, next)
		src := filepath.Join(job.WorkDir, frame.Original)
		dst := filepath.Join(job.WorkDir, sequential)
		if err := os.Rename(src, dst); err != nil {
			if os.IsNotExist(err) {
				logger.Warn("frame missing at encode time, skipping",
					logging.String("frame", frame.Original))
				continue
			}
			return 0, services.Wrap(services.ErrStorageFailure, "prepare frames", "rename", frame.Original, err)
		}
		renamed = append(renamed, queue.Frame{Original: frame.Original, Sequential: sequential})
		next++
	}
	if len(renamed) == 0 {
		return 0, services.Wrap(services.ErrStorageFailure, "prepare frames", "", "no frames available to encode", nil)
	}
	if err := m.store.SetFrames(context.Background(), job.ID, renamed); err != nil {
		return 0, services.Wrap(services.ErrStorageFailure, "prepare frames", "record rename", "", err)
	}
	return len(renamed), nil
}

// failJob records a terminal failure. The sentinel marker stays on the error
// for classification in logs; the stored message is the stripped detail.
func (m *Manager) failJob(id string, failure error, logger *slog.Logger) {
	logger.Warn("encode failed", logging.Error(failure))
	if err := m.store.MarkFailed(context.Background(), id, services.Message(failure)); err != nil {
		logger.Error("record failure", logging.Error(err))
	}
}

func phaseLabel(final bool) string {
	if final {
		return "encode"
	}
	return "palette generation"
}

// lastLine returns the last non-empty line of encoder output, which is where
// ffmpeg reports its error.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no encoder output"
}
