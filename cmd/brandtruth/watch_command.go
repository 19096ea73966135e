package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/progress"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Stream live progress for a running workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchWorkflow(cmd, ctx, args[0])
		},
	}
	return cmd
}

// watchWorkflow subscribes to the push channel and renders updates until a
// terminal event arrives or the command is interrupted.
func watchWorkflow(cmd *cobra.Command, cmdCtx *commandContext, jobID string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := cmdCtx.newClient()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	done := make(chan error, 1)

	streamer := progress.NewStreamer(client, cfg.Stream.ReconnectAttempts, cfg.ReconnectDelayStep(), logger)
	defer streamer.Stop()

	err = streamer.Start(cmd.Context(), jobID, progress.Callbacks{
		OnProgress: func(snapshot orchestrator.Snapshot) {
			fmt.Fprintf(out, "%-18s %5.1f%%  %s\n", stageLabel(snapshot.Stage), snapshot.ProgressPercent, snapshot.Message)
		},
		OnComplete: func(snapshot orchestrator.Snapshot) {
			fmt.Fprintf(out, "%-18s %5.1f%%  %s\n", stageLabel(snapshot.Stage), snapshot.ProgressPercent, snapshot.Message)
			done <- nil
		},
		OnError: func(streamErr error) {
			done <- streamErr
		},
	})
	if err != nil {
		return err
	}

	select {
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	case err := <-done:
		if err != nil {
			var appErr *progress.ApplicationError
			if errors.As(err, &appErr) {
				return fmt.Errorf("workflow failed: %s", appErr.Error())
			}
			return err
		}
	}

	return printResult(cmd.Context(), cmd, client, jobID)
}

func printResult(ctx context.Context, cmd *cobra.Command, client *orchestrator.Client, jobID string) error {
	result, err := client.Result(ctx, jobID)
	if err != nil {
		// The workflow completed; a result fetch hiccup should not fail the
		// whole watch.
		fmt.Fprintf(cmd.OutOrStdout(), "Workflow complete (result fetch failed: %v)\n", err)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWorkflow %s complete", result.JobID)
	if result.CampaignName != "" {
		fmt.Fprintf(out, " (campaign %q)", result.CampaignName)
	}
	fmt.Fprintln(out)

	if len(result.Variants) == 0 {
		return nil
	}
	fmt.Fprintln(out, renderVariantTable(result.Variants))
	return nil
}
