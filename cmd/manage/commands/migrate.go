package commands

import (
	"github.com/spf13/cobra"

	"github.com/marketua/marketplace-backend/internal/database"
)

// migrateCmd brings the schema up to date with the models
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		return database.RunMigrations(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
