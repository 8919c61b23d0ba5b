package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/services"
	"github.com/marketua/marketplace-backend/internal/utils"
)

var (
	// Createsuperuser flags
	superuserEmail    string
	superuserPassword string
)

// createSuperuserCmd creates a staff account with every permission
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a superuser account",
	Long: `Create a superuser account.

The password may be passed with --password or the SUPERUSER_PASSWORD
environment variable.

Examples:
  manage createsuperuser --email admin@example.com --password 's3cret!pass'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := superuserPassword
		if password == "" {
			password = os.Getenv("SUPERUSER_PASSWORD")
		}

		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		hasher := utils.NewPasswordHasher(cfg.Security.PasswordHashIterations)
		addresses := services.NewAddressService()
		tokens := services.NewTokenService(db, cfg)
		users := services.NewUserService(db, hasher, addresses, tokens)

		user, err := users.CreateSuperuser(cmd.Context(), superuserEmail, password)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %d).\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "Email address of the superuser")
	createSuperuserCmd.Flags().StringVar(&superuserPassword, "password", "", "Password of the superuser")
	rootCmd.AddCommand(createSuperuserCmd)
}
