package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Fetch a point-in-time progress snapshot for a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			snapshot, err := client.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if snapshot == nil {
				fmt.Fprintln(out, "No progress reported yet.")
				return nil
			}
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(snapshot)
			}

			fmt.Fprintf(out, "Job:      %s\n", snapshot.JobID)
			fmt.Fprintf(out, "Stage:    %s\n", stageLabel(snapshot.Stage))
			fmt.Fprintf(out, "Progress: %.1f%%\n", snapshot.ProgressPercent)
			if snapshot.Message != "" {
				fmt.Fprintf(out, "Message:  %s\n", snapshot.Message)
			}
			if snapshot.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", snapshot.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the snapshot as JSON")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe orchestrator availability once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			status, err := client.Health(cmd.Context())
			out := cmd.OutOrStdout()
			switch {
			case err != nil:
				fmt.Fprintf(out, "Backend unreachable: %v\n", err)
			case status.Available:
				fmt.Fprintln(out, "Backend available.")
			default:
				if status.Message != "" {
					fmt.Fprintf(out, "Backend reachable but not accepting work: %s\n", status.Message)
				} else {
					fmt.Fprintln(out, "Backend reachable but not accepting work.")
				}
			}
			return nil
		},
	}
}
