package users

import (
	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

// UsersCmd is the parent command for platform account management
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage platform accounts",
	Long:  `Commands for creating and listing platform accounts directly against the database.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user (required)")
	createCmd.Flags().StringVar(&displayNameFlag, "display-name", "", "Display name of the user")
	createCmd.Flags().StringVar(&roleFlag, "role", string(auth.RoleCustomer), "Platform role: customer, creator or admin")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
}
