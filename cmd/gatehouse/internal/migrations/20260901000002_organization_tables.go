package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260901000002, down_20260901000002)
}

// up_20260901000002 creates organizations and their membership table
func up_20260901000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating organizations table...")
	if _, err := db.NewCreateTable().
		Model((*models.Organization)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create organizations table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating organization_members table...")
	if _, err := db.NewCreateTable().
		Model((*models.Membership)(nil)).
		IfNotExists().
		ForeignKey(`("organization_id") REFERENCES "organizations" ("id") ON DELETE CASCADE`).
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create organization_members table: %w", err)
	}

	if err := addCheckConstraints(ctx, db, checkConstraint{
		Table: "organization_members",
		Name:  "organization_members_role_check",
		Expr:  "role IN ('owner', 'admin', 'creator', 'subscriber', 'member')",
	}); err != nil {
		return err
	}
	fmt.Println(" OK")
	return nil
}

// down_20260901000002 drops organization_members and organizations
func down_20260901000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping organization tables...")
	for _, model := range []any{(*models.Membership)(nil), (*models.Organization)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
