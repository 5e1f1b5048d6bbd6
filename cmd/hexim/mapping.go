package main

import (
	"context"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/repositories/mappingfields"
	"github.com/spf13/cobra"
)

var mappingType string

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage the field mapping overrides",
}

func init() {
	mappingCmd.PersistentFlags().StringVar(&mappingType, "type", models.MappingTypeProduct, "Mapping type")
	mappingCmd.AddCommand(mappingListCmd, mappingSetCmd, mappingDeleteCmd)
}

var mappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withOverrides(cmd.Context(), func(ctx context.Context, repo *mappingfields.Repository) error {
			overrides, err := repo.ListByType(ctx, mappingType)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), overrides)
		})
	},
}

var mappingSetCmd = &cobra.Command{
	Use:   "set [sw-field] [plenty-field]",
	Short: "Map a Shopware field to a Plenty path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOverrides(cmd.Context(), func(ctx context.Context, repo *mappingfields.Repository) error {
			override, err := repo.Set(ctx, mappingType, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), override)
		})
	},
}

var mappingDeleteCmd = &cobra.Command{
	Use:   "delete [sw-field]",
	Short: "Restore the built-in mapping of a field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOverrides(cmd.Context(), func(ctx context.Context, repo *mappingfields.Repository) error {
			return repo.Delete(ctx, mappingType, args[0])
		})
	},
}

func withOverrides(ctx context.Context, fn func(ctx context.Context, repo *mappingfields.Repository) error) error {
	_, db, logger, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, mappingfields.NewRepository(db, logger))
}
