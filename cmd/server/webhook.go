package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the provider webhook subscription",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Replace the webhook subscription for WEBHOOK_URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWebhookSync(cmd.Context())
		},
	})
	return cmd
}

func runWebhookSync(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := setup()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	return newProviderDeps(cfg, logger).reconciler.Sync(ctx)
}
