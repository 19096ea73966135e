package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/agent"
)

func newAgentCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the background lifecycle agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newAgentRunCommand(ctx))
	return cmd
}

func newAgentRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent in the foreground until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			a, err := agent.New(cfg, store, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			a.Stop()
			return nil
		},
	}
}
