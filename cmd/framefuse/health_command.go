package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon health and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := cli.Health(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Daemon: %s (up %s)\n",
				health.Status, (time.Duration(health.UptimeSeconds) * time.Second).String())
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"TOTAL", "UPLOADED", "PROCESSING", "COMPLETED", "FAILED"},
				[][]string{{
					strconv.Itoa(health.Jobs.Total),
					strconv.Itoa(health.Jobs.Uploaded),
					strconv.Itoa(health.Jobs.Processing),
					strconv.Itoa(health.Jobs.Completed),
					strconv.Itoa(health.Jobs.Failed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
