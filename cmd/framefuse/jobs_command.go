package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"framefuse/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List all jobs known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := cli.ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs.")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					job.ID,
					colorizeStatus(job.Status),
					strconv.Itoa(job.Progress) + "%",
					strconv.Itoa(job.FrameCount),
					job.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "STATUS", "PROGRESS", "FRAMES", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := cli.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJob(cmd, job)
			return nil
		},
	}
}

func printJob(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", job.ID)
	fmt.Fprintf(out, "Status:    %s\n", colorizeStatus(job.Status))
	fmt.Fprintf(out, "Progress:  %d%%\n", job.Progress)
	fmt.Fprintf(out, "Frames:    %d\n", job.FrameCount)
	if job.CreatedAt != "" {
		fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt)
	}
	if job.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated:   %s\n", job.UpdatedAt)
	}
	if job.OutputSize > 0 {
		fmt.Fprintf(out, "Output:    %s\n", formatBytes(job.OutputSize))
	}
	if job.ProcessingMs > 0 {
		fmt.Fprintf(out, "Encode:    %dms\n", job.ProcessingMs)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
