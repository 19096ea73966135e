package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/lifecycle"
	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/orchestrator"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var (
		variants int
		platform string
		campaign string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "start <url>",
		Short: "Start a generation workflow for a landing page URL",
		Long: "Submits a job to the orchestrator. When the backend is unreachable the " +
			"request is queued durably and retried automatically once health recovers.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			// A one-shot command probes health live rather than trusting a
			// cached verdict from another process.
			availability := func(probeCtx context.Context) bool {
				status, healthErr := client.Health(probeCtx)
				return healthErr == nil && status.Available
			}
			starter := lifecycle.NewStarter(store, client, availability, logger)

			outcome, err := starter.Start(cmd.Context(), orchestrator.StartRequest{
				URL:          args[0],
				VariantCount: variants,
				Platform:     platform,
				UserID:       cfg.Orchestrator.UserID,
				CampaignName: campaign,
			})
			if err != nil {
				return err
			}
			if outcome.Queued() {
				fmt.Fprintf(cmd.OutOrStdout(), "Backend unavailable; request queued as %s (will retry automatically)\n", outcome.QueueID)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Workflow started: %s\n", outcome.JobID)
			if watch {
				return watchWorkflow(cmd, ctx, outcome.JobID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&variants, "variants", "n", 3, "Number of creative variants to generate")
	cmd.Flags().StringVarP(&platform, "platform", "p", "meta", "Target ad platform (meta, tiktok, linkedin, ...)")
	cmd.Flags().StringVar(&campaign, "campaign", "", "Campaign name to attach to the job")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream progress after a successful start")

	return cmd
}
