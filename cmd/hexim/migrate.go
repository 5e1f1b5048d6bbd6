package main

import (
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, logger, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		version := cfg.DatabaseMigrationVersion
		if version < 0 {
			version = 0
		}
		return database.NewMigrationService(logger, database.MigrationConfig{
			FolderPath:   cfg.DatabaseMigrationFolderPath,
			Version:      uint(version),
			Force:        cfg.DatabaseMigrationForce,
			AutoRollback: cfg.DatabaseMigrationAutoRollback,
		}).Migrate(db, cfg.DatabaseName)
	},
}
