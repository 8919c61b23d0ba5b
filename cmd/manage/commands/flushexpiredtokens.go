package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/services"
)

// flushExpiredTokensCmd removes outstanding tokens past their expiry
var flushExpiredTokensCmd = &cobra.Command{
	Use:   "flushexpiredtokens",
	Short: "Delete expired outstanding and blacklisted tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		flushed, err := services.NewTokenService(db, cfg).FlushExpired(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Flushed %d expired tokens.\n", flushed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flushExpiredTokensCmd)
}
