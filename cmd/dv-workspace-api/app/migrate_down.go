package app

import (
	"github.com/spf13/cobra"

	"github.com/docuvault/docuvault-server/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back database migrations",
	Long: `Roll back the database migrations, dropping the schema. This is
destructive: every workspace, document, group and permission is removed.`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return runMigration(cmd, "roll back", database.MigrateDown)
}
