package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"framefuse/internal/api"
	"framefuse/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var codec string
	var quality string
	var frameRate int
	var noWait bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "submit <frame-dir>",
		Short: "Upload a directory of PNG frames, encode, and download the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}

			frames, err := collectFrames(args[0])
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				return fmt.Errorf("no PNG frames in %s", args[0])
			}

			job, err := cli.Upload(cmd.Context(), frames)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d frames as job %s\n", job.FrameCount, job.ID)

			job, err = cli.Start(cmd.Context(), job.ID, api.StartRequest{
				Codec:     codec,
				Quality:   quality,
				FrameRate: frameRate,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encoding started (%s)\n", job.ID)
			if noWait {
				return nil
			}

			job, err = waitForJob(cmd.Context(), cli, job.ID)
			if err != nil {
				return err
			}
			if job.Status != string(queue.StatusCompleted) {
				return fmt.Errorf("encode failed: %s", job.ErrorMessage)
			}

			path, err := cli.Download(cmd.Context(), job.ID, outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", path, formatBytes(job.OutputSize))
			return nil
		},
	}

	cmd.Flags().StringVar(&codec, "codec", "", "Output codec: vp9, vp8, prores, qtrle, gif")
	cmd.Flags().StringVar(&quality, "quality", "", "Encode quality: fast, balanced, best")
	cmd.Flags().IntVar(&frameRate, "fps", 0, "Frame rate (clamped to the configured range)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return after starting the encode instead of waiting")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the downloaded artifact")
	return cmd
}

// collectFrames lists the PNG files of a directory in name order.
func collectFrames(dir string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	var frames []string
	for _, entry := range entries {
		if strings.EqualFold(filepath.Ext(entry), ".png") {
			frames = append(frames, entry)
		}
	}
	sort.Strings(frames)
	return frames, nil
}

// waitForJob polls status until the job reaches a terminal state.
func waitForJob(ctx context.Context, cli *client, id string) (api.Job, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := cli.GetJob(ctx, id)
		if err != nil {
			return api.Job{}, err
		}
		if queue.Status(job.Status).IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return api.Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
