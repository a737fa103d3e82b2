package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/cmd/cmdutil"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
)

// OrgsCmd is the parent command for organization management
var OrgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "Manage organizations and their members",
}

var (
	slugFlag       string
	nameFlag       string
	ownerEmailFlag string
	orgFlag        string
	memberEmail    string
	memberRole     string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := strings.ToLower(strings.TrimSpace(slugFlag))
		if slug == "" {
			return fmt.Errorf("--slug flag is required")
		}
		if nameFlag == "" {
			nameFlag = slug
		}

		_, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := cmd.Context()
		createdBy := auth.SystemUserID
		var owner *models.User
		if ownerEmailFlag != "" {
			owner, err = bundle.Users.GetByEmail(ctx, ownerEmailFlag)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("owner %q not found", ownerEmailFlag)
				}
				return fmt.Errorf("failed to look up owner: %w", err)
			}
			createdBy = owner.ID
		}

		org := &models.Organization{Slug: slug, Name: nameFlag, CreatedBy: createdBy}
		if err := bundle.Organizations.Create(ctx, org); err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Organization created: %s (%s)\n", org.Slug, org.ID)
		if owner != nil {
			if _, err := bundle.Members.AddMember(ctx, org.ID, owner.Email, membership.RoleOwner, auth.SystemUserID); err != nil {
				return fmt.Errorf("failed to add owner: %w", err)
			}
			fmt.Fprintf(out, "Owner: %s\n", owner.Email)
		}
		return nil
	},
}

var addMemberCmd = &cobra.Command{
	Use:   "add-member",
	Short: "Add a user to an organization or change their role",
	RunE: func(cmd *cobra.Command, args []string) error {
		if orgFlag == "" || memberEmail == "" {
			return fmt.Errorf("--org and --email flags are required")
		}
		role, err := membership.ParseRole(memberRole)
		if err != nil {
			return err
		}

		_, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := cmd.Context()
		org, err := resolveOrganization(ctx, bundle.Organizations, orgFlag)
		if err != nil {
			return err
		}

		m, err := bundle.Members.AddMember(ctx, org.ID, memberEmail, role, auth.SystemUserID)
		if err != nil {
			if errors.Is(err, membership.ErrUnknownUser) {
				return fmt.Errorf("user %q not found", memberEmail)
			}
			return fmt.Errorf("failed to add member: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s of %s\n", m.Email, m.Role, org.Slug)
		return nil
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List the members of an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		if orgFlag == "" {
			return fmt.Errorf("--org flag is required")
		}

		_, bundle, err := cmdutil.Load()
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := cmd.Context()
		org, err := resolveOrganization(ctx, bundle.Organizations, orgFlag)
		if err != nil {
			return err
		}
		members, err := bundle.Members.ListMembers(ctx, org.ID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USER ID\tEMAIL\tROLE")
		for _, m := range members {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.UserID, m.Email, m.Role)
		}
		return w.Flush()
	},
}

// resolveOrganization accepts an organization ID or slug.
func resolveOrganization(ctx context.Context, orgs repository.OrganizationRepository, ref string) (*models.Organization, error) {
	var (
		org *models.Organization
		err error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		org, err = orgs.GetByID(ctx, ref)
	} else {
		org, err = orgs.GetBySlug(ctx, strings.ToLower(ref))
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("organization %q not found", ref)
		}
		return nil, fmt.Errorf("failed to look up organization: %w", err)
	}
	return org, nil
}

func init() {
	createCmd.Flags().StringVar(&slugFlag, "slug", "", "Unique organization slug (required)")
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Display name (defaults to the slug)")
	createCmd.Flags().StringVar(&ownerEmailFlag, "owner-email", "", "Email of the user to add as owner")

	addMemberCmd.Flags().StringVar(&orgFlag, "org", "", "Organization slug or ID (required)")
	addMemberCmd.Flags().StringVar(&memberEmail, "email", "", "Email of the user (required)")
	addMemberCmd.Flags().StringVar(&memberRole, "role", string(membership.RoleMember), "Role: owner, admin, creator, subscriber or member")

	membersCmd.Flags().StringVar(&orgFlag, "org", "", "Organization slug or ID (required)")

	OrgsCmd.AddCommand(createCmd)
	OrgsCmd.AddCommand(addMemberCmd)
	OrgsCmd.AddCommand(membersCmd)
}
