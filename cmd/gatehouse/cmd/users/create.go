package users

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/cmdutil"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

var (
	emailFlag       string
	displayNameFlag string
	roleFlag        string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a platform account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		role := auth.PlatformRole(strings.ToLower(strings.TrimSpace(roleFlag)))
		if !role.Valid() {
			valid := make([]string, 0, len(auth.PlatformRoles()))
			for _, r := range auth.PlatformRoles() {
				valid = append(valid, r.String())
			}
			return fmt.Errorf("invalid role %q\nValid roles are: %s", roleFlag, strings.Join(valid, ", "))
		}

		_, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		user, err := bundle.IAM.CreateUser(cmd.Context(), emailFlag, displayNameFlag, role)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "User created successfully!")
		fmt.Fprintln(out, "----------------------------------------")
		fmt.Fprintf(out, "User ID: %s\n", user.ID)
		fmt.Fprintf(out, "Email: %s\n", user.Email)
		if user.DisplayName != "" {
			fmt.Fprintf(out, "Display name: %s\n", user.DisplayName)
		}
		fmt.Fprintf(out, "Role: %s\n", user.PlatformRole)
		fmt.Fprintln(out, "----------------------------------------")
		return nil
	},
}
