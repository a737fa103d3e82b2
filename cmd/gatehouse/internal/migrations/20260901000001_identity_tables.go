package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260901000001, down_20260901000001)
}

// up_20260901000001 creates users and sessions
func up_20260901000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	if _, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	if err := addCheckConstraints(ctx, db, checkConstraint{
		Table: "users",
		Name:  "users_platform_role_check",
		Expr:  "platform_role IN ('customer', 'creator', 'admin')",
	}); err != nil {
		return err
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating sessions table...")
	if _, err := db.NewCreateTable().
		Model((*models.Session)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	if _, err := db.NewCreateIndex().
		Model((*models.Session)(nil)).
		Index("idx_sessions_user_id").
		Column("user_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create sessions user index: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

// down_20260901000001 drops sessions and users
func down_20260901000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping sessions and users tables...")
	for _, model := range []any{(*models.Session)(nil), (*models.User)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
