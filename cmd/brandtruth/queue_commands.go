package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the durable start-request queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueRemoveCommand(ctx))
	cmd.AddCommand(newQueueRetryCommand(ctx))
	cmd.AddCommand(newQueueClearCommand(ctx))
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending and failed start requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(api.QueueListResponse{Items: api.FromJobs(jobs)})
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "Queue is empty.")
				return nil
			}
			fmt.Fprintln(out, renderQueueTable(jobs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the queue as JSON")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one start request from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no queue item with id %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed requests so they are retried on the next drain",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			reset, err := store.RetryFailed(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed request(s)\n", reset)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queued start requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var (
				removed int64
			)
			if failedOnly {
				removed, err = store.ClearFailed(cmd.Context())
			} else {
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d request(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove requests frozen as failed")
	return cmd
}

func formatAge(since time.Time) string {
	if since.IsZero() {
		return "-"
	}
	age := time.Since(since)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}
