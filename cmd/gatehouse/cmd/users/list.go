package users

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List platform accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		users, err := bundle.IAM.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		if len(users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No users found")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tROLE\tVERIFIED\tCREATED\tSTATUS")
		for _, u := range users {
			status := "active"
			if u.DisabledAt != nil {
				status = "disabled"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
				u.ID, u.Email, u.PlatformRole, u.EmailVerified, u.CreatedAt.Format(time.RFC3339), status)
		}
		return w.Flush()
	},
}
