package main

import (
	"context"
	"strconv"

	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/spf13/cobra"
)

var variationID int64

func init() {
	for _, cmd := range []*cobra.Command{debugCmd, enqueueCmd} {
		cmd.Flags().Int64Var(&variationID, "variation-id", 0, "Plenty variation id")
		_ = cmd.MarkFlagRequired("variation-id")
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync one batch of the pending queue and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			result, err := a.scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Sync a single variation fetched live from Plenty, bypassing the queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			result, err := a.driver.RunSingle(ctx, variationID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Fetch a variation from Plenty and queue it for the next batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			variation, found, err := a.source.GetVariation(ctx, variationID)
			if err != nil {
				return err
			}
			if !found {
				return synerr.New(synerr.KindSourceFetchEmpty, "VariationID not found.").AddForeignID(strconv.FormatInt(variationID, 10))
			}

			id, err := a.queue.Enqueue(ctx, variation)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "variation_id": variationID})
		})
	},
}

func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx, 1)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}
