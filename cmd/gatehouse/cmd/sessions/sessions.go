package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/cmdutil"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
)

// SessionsCmd is the parent command for session operations
var SessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Issue and revoke user sessions",
}

var (
	emailFlag  string
	userIDFlag string
	ttlFlag    time.Duration
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a session token for a user",
	Long: `Issues a session for the user and prints the session cookie. The token is
shown once; only its hash is stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (emailFlag == "") == (userIDFlag == "") {
			return fmt.Errorf("exactly one of --email or --user-id is required")
		}
		if ttlFlag <= 0 {
			return fmt.Errorf("--ttl must be positive")
		}

		cfg, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := cmd.Context()
		userID := userIDFlag
		if emailFlag != "" {
			user, err := bundle.Users.GetByEmail(ctx, emailFlag)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("user %q not found", emailFlag)
				}
				return fmt.Errorf("failed to look up user: %w", err)
			}
			userID = user.ID
		}

		session, token, err := bundle.IAM.CreateSession(ctx, userID, ttlFlag, "gatehouse-cli", "")
		if err != nil {
			return fmt.Errorf("failed to issue session: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session ID: %s\n", session.ID)
		fmt.Fprintf(out, "Expires:    %s\n", session.ExpiresAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Cookie:     %s=%s\n", cfg.Session.CookieName, token)
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke every active session of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userIDFlag == "" {
			return fmt.Errorf("--user-id flag is required")
		}

		_, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		n, err := bundle.IAM.RevokeUserSessions(cmd.Context(), userIDFlag)
		if err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s)\n", n)
		return nil
	},
}

func init() {
	issueCmd.Flags().StringVar(&emailFlag, "email", "", "Email of the user")
	issueCmd.Flags().StringVar(&userIDFlag, "user-id", "", "ID of the user")
	issueCmd.Flags().DurationVar(&ttlFlag, "ttl", 24*time.Hour, "Session lifetime")

	revokeCmd.Flags().StringVar(&userIDFlag, "user-id", "", "ID of the user (required)")

	SessionsCmd.AddCommand(issueCmd)
	SessionsCmd.AddCommand(revokeCmd)
}
