package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framefuse/internal/api"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var codec string
	var quality string
	var frameRate int

	cmd := &cobra.Command{
		Use:   "start <job-id>",
		Short: "Start encoding an uploaded job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := cli.Start(cmd.Context(), args[0], api.StartRequest{
				Codec:     codec,
				Quality:   quality,
				FrameRate: frameRate,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encoding started for %s\n", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&codec, "codec", "", "Output codec: vp9, vp8, prores, qtrle, gif")
	cmd.Flags().StringVar(&quality, "quality", "", "Encode quality: fast, balanced, best")
	cmd.Flags().IntVar(&frameRate, "fps", 0, "Frame rate (clamped to the configured range)")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download a completed job's artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			path, err := cli.Download(cmd.Context(), args[0], outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the downloaded artifact")
	return cmd
}
