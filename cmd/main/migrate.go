package main

import (
	"github.com/spf13/cobra"

	"alias-service/internal/store/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations (DB_MIGRATION_FOLDER_PATH)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(db, a.cfg.MigrationFolderPath, a.logger)
		},
	}
}
