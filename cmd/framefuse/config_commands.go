package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"framefuse/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Work directory:   %s\n", cfg.Paths.WorkDir)
			fmt.Fprintf(out, "Log directory:    %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "API bind:         %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "FFmpeg binary:    %s\n", cfg.FFmpegBinary())
			fmt.Fprintf(out, "Frame rate:       %d (range %d-%d)\n",
				cfg.Encoder.DefaultFrameRate, cfg.Encoder.MinFrameRate, cfg.Encoder.MaxFrameRate)
			fmt.Fprintf(out, "Encode deadline:  %s\n", cfg.EncodeDeadline())
			fmt.Fprintf(out, "Max frames:       %d\n", cfg.Jobs.MaxFrameCount)
			fmt.Fprintf(out, "Job TTL:          %s\n", cfg.JobTTL())
			return nil
		},
	}
}
